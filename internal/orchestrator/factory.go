package orchestrator

import (
	"errors"

	"github.com/fyrsmithlabs/autodev/internal/agent"
	"github.com/fyrsmithlabs/autodev/internal/artifacts"
	"github.com/fyrsmithlabs/autodev/internal/buildcheck"
	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/llm"
	"github.com/fyrsmithlabs/autodev/internal/logging"
	"github.com/fyrsmithlabs/autodev/internal/probe"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the collaborators shared by every run.
type Dependencies struct {
	Generator llm.Generator
	Template  artifacts.TemplateSource
	Store     artifacts.Store
	Prober    probe.Prober
	Checker   buildcheck.Checker
	Backend   agent.BackendSettings

	Logger   *logging.Logger
	Tracer   trace.Tracer
	Progress progress.Callback
}

// Caller returns a contract caller over the shared generator.
func (d Dependencies) Caller() *contract.Caller {
	opts := []contract.Option{contract.WithProgress(d.Progress)}
	if d.Logger != nil {
		opts = append(opts, contract.WithLogger(d.Logger.Named("contract")))
	}
	if d.Tracer != nil {
		opts = append(opts, contract.WithTracer(d.Tracer))
	}
	return contract.NewCaller(d.Generator, opts...)
}

func (d Dependencies) validate() error {
	switch {
	case d.Generator == nil:
		return errors.New("generator is required")
	case d.Template == nil:
		return errors.New("code template source is required")
	case d.Store == nil:
		return errors.New("artifact store is required")
	case d.Prober == nil:
		return errors.New("url prober is required")
	}
	return nil
}

// StandardAgents returns the Factory for the default pipeline: scoping,
// URL validation, then backend code generation. Each run writes its
// artifacts under its own run ID.
func StandardAgents(d Dependencies) Factory {
	return func(run Run) ([]agent.Agent, error) {
		if err := d.validate(); err != nil {
			return nil, err
		}

		caller := d.Caller()
		store := d.Store.ForRun(run.ID)

		var opts []agent.Option
		if d.Logger != nil {
			opts = append(opts, agent.WithLogger(d.Logger.Named("agent")))
		}
		opts = append(opts, agent.WithProgress(d.Progress))

		return []agent.Agent{
			agent.NewArchitect(caller, opts...),
			agent.NewURLValidator(d.Prober, opts...),
			agent.NewBackendDeveloper(caller, agent.BackendCollaborators{
				Template: d.Template,
				Code:     store,
				Schema:   store,
				Checker:  d.Checker,
			}, d.Backend, opts...),
		}, nil
	}
}
