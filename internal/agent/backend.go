package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/autodev/internal/artifacts"
	"github.com/fyrsmithlabs/autodev/internal/buildcheck"
	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"go.uber.org/zap"
)

const (
	BackendPosition  = "Backend Developer"
	backendObjective = "Develops backend code for webserver and json database"
)

var backendTransitions = transitionTable{
	StateDiscovery:  {StateWorking},
	StateWorking:    {StateValidating},
	StateValidating: {StateWorking, StateFinished},
}

// BackendSettings tunes the code generation loop.
type BackendSettings struct {
	// MaxBugAttempts is how many failed checks are repaired; one more fails the agent.
	MaxBugAttempts int
	SkipImprove    bool
}

// BackendCollaborators are the outside resources the backend developer uses.
type BackendCollaborators struct {
	Template artifacts.TemplateSource
	Code     artifacts.CodeStore
	Schema   artifacts.SchemaSink
	Checker  buildcheck.Checker
}

// BackendDeveloper generates the web server code, repairs it until the build
// check is clean, then extracts its REST endpoints.
type BackendDeveloper struct {
	base
	caller   *contract.Caller
	collab   BackendCollaborators
	settings BackendSettings

	bugCount  int
	bugReport string
}

// NewBackendDeveloper creates a BackendDeveloper. A nil Checker never reports bugs.
func NewBackendDeveloper(caller *contract.Caller, collab BackendCollaborators, settings BackendSettings, opts ...Option) *BackendDeveloper {
	if collab.Checker == nil {
		collab.Checker = buildcheck.Nop{}
	}
	if settings.MaxBugAttempts < 0 {
		settings.MaxBugAttempts = 0
	}
	return &BackendDeveloper{
		base:     newBase(Attributes{Objective: backendObjective, Position: BackendPosition}, backendTransitions, opts),
		caller:   caller,
		collab:   collab,
		settings: settings,
	}
}

// BugCount returns how many build checks have failed so far.
func (d *BackendDeveloper) BugCount() int {
	return d.bugCount
}

// Execute implements Agent.
func (d *BackendDeveloper) Execute(ctx context.Context, rec *project.Record) error {
	for !d.State().IsTerminal() {
		if err := ctx.Err(); err != nil {
			return d.fail(err)
		}

		var err error
		switch d.State() {
		case StateDiscovery:
			err = d.generate(ctx, rec)
		case StateWorking:
			err = d.revise(ctx, rec)
		case StateValidating:
			err = d.validate(ctx, rec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *BackendDeveloper) generate(ctx context.Context, rec *project.Record) error {
	tmpl, err := d.collab.Template.Template(ctx)
	if err != nil {
		return d.fail(err)
	}

	input := fmt.Sprintf("CODE_TEMPLATE: %s \n PROJECT_DESCRIPTION: %s \n", tmpl, rec.Description())
	code, err := d.caller.Invoke(ctx, contract.Request{Agent: d.attrs.Position, Intent: contract.IntentBackendCode, Input: input})
	if err != nil {
		return d.fail(err)
	}
	if err := d.store(ctx, rec, code); err != nil {
		return err
	}
	return d.moveTo(ctx, StateWorking)
}

func (d *BackendDeveloper) revise(ctx context.Context, rec *project.Record) error {
	current, err := rec.RequireCode()
	if err != nil {
		return d.fail(err)
	}

	var req contract.Request
	switch {
	case d.bugCount > 0:
		req = contract.Request{
			Agent:  d.attrs.Position,
			Intent: contract.IntentFixCode,
			Input:  fmt.Sprintf("BROKEN_CODE: %s \n ERROR_BUGS: %s \n", current, d.bugReport),
		}
	case d.settings.SkipImprove:
		return d.moveTo(ctx, StateValidating)
	default:
		snap := rec.Snapshot()
		snap.BackendCode = nil
		facts, err := json.Marshal(snap)
		if err != nil {
			return d.fail(fmt.Errorf("encoding project record: %w", err))
		}
		req = contract.Request{
			Agent:  d.attrs.Position,
			Intent: contract.IntentImprovedCode,
			Input:  fmt.Sprintf("CODE: %s \n PROJECT: %s \n", current, facts),
		}
	}

	code, err := d.caller.Invoke(ctx, req)
	if err != nil {
		return d.fail(err)
	}
	if err := d.store(ctx, rec, code); err != nil {
		return err
	}
	return d.moveTo(ctx, StateValidating)
}

func (d *BackendDeveloper) validate(ctx context.Context, rec *project.Record) error {
	code, err := rec.RequireCode()
	if err != nil {
		return d.fail(err)
	}

	d.say(progress.KindUnitTest, "Backend Code Unit Testing: building project...")

	report, err := d.collab.Checker.Check(ctx, code)
	if err != nil {
		BuildChecksTotal.WithLabelValues("error").Inc()
		return d.fail(fmt.Errorf("running build check: %w", err))
	}

	if strings.TrimSpace(report) != "" {
		BuildChecksTotal.WithLabelValues("failed").Inc()
		d.bugCount++
		d.bugReport = report
		d.say(progress.KindIssue, fmt.Sprintf("Backend Code Unit Testing: build failed (attempt %d)", d.bugCount))
		d.logger.Warn(ctx, "build check failed",
			zap.Int("bug_count", d.bugCount),
			zap.Int("max_bug_attempts", d.settings.MaxBugAttempts),
			zap.String("report", report),
		)
		if d.bugCount > d.settings.MaxBugAttempts {
			return d.fail(fmt.Errorf("%w: %d failed checks", ErrRepairExhausted, d.bugCount))
		}
		return d.moveTo(ctx, StateWorking)
	}

	BuildChecksTotal.WithLabelValues("clean").Inc()
	d.bugReport = ""
	d.say(progress.KindUnitTest, "Backend Code Unit Testing: build successful")

	return d.extractEndpoints(ctx, rec)
}

func (d *BackendDeveloper) extractEndpoints(ctx context.Context, rec *project.Record) error {
	saved, err := d.collab.Code.LoadCode(ctx)
	if err != nil {
		return d.fail(err)
	}

	routes, err := contract.InvokeDecoded[[]project.RouteDescriptor](ctx, d.caller, contract.Request{
		Agent:  d.attrs.Position,
		Intent: contract.IntentRESTEndpoints,
		Input:  saved,
	})
	if err != nil {
		return d.fail(err)
	}
	if err := d.collab.Schema.SaveSchema(ctx, routes); err != nil {
		return d.fail(fmt.Errorf("saving endpoint schema: %w", err))
	}
	if err := rec.SetEndpointSchema(routes); err != nil {
		return d.fail(err)
	}

	d.logger.Info(ctx, "endpoint schema extracted", zap.Int("routes", len(routes)))
	return d.moveTo(ctx, StateFinished)
}

func (d *BackendDeveloper) store(ctx context.Context, rec *project.Record, code string) error {
	if err := d.collab.Code.SaveCode(ctx, code); err != nil {
		return d.fail(fmt.Errorf("saving code: %w", err))
	}
	rec.SetCode(code)
	return nil
}
