package agent

import (
	"context"

	"github.com/fyrsmithlabs/autodev/internal/contract"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"go.uber.org/zap"
)

const (
	ArchitectPosition  = "Solutions Architect"
	architectObjective = "Gathers information and designs solutions for website development"
)

var architectTransitions = transitionTable{
	StateDiscovery:  {StateValidating, StateFinished},
	StateValidating: {StateFinished},
}

// Architect decides the project scope and, when the project needs external
// data, lists candidate external URLs.
type Architect struct {
	base
	caller *contract.Caller
}

// NewArchitect creates an Architect.
func NewArchitect(caller *contract.Caller, opts ...Option) *Architect {
	return &Architect{
		base:   newBase(Attributes{Objective: architectObjective, Position: ArchitectPosition}, architectTransitions, opts),
		caller: caller,
	}
}

// Execute implements Agent.
func (a *Architect) Execute(ctx context.Context, rec *project.Record) error {
	for !a.State().IsTerminal() {
		if err := ctx.Err(); err != nil {
			return a.fail(err)
		}

		var err error
		switch a.State() {
		case StateDiscovery:
			err = a.scope(ctx, rec)
		case StateValidating:
			err = a.listURLs(ctx, rec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Architect) scope(ctx context.Context, rec *project.Record) error {
	scope, err := contract.InvokeDecoded[project.ScopeDecision](ctx, a.caller, contract.Request{
		Agent:  a.attrs.Position,
		Intent: contract.IntentProjectScope,
		Input:  rec.Description(),
	})
	if err != nil {
		return a.fail(err)
	}
	if err := rec.SetScope(scope); err != nil {
		return a.fail(err)
	}

	a.logger.Info(ctx, "project scope decided",
		zap.Bool("crud", scope.IsCRUDRequired),
		zap.Bool("login", scope.IsUserLoginAndLogout),
		zap.Bool("external_urls", scope.IsExternalURLsRequired),
	)

	if scope.IsExternalURLsRequired {
		return a.moveTo(ctx, StateValidating)
	}
	return a.moveTo(ctx, StateFinished)
}

func (a *Architect) listURLs(ctx context.Context, rec *project.Record) error {
	urls, err := contract.InvokeDecoded[[]string](ctx, a.caller, contract.Request{
		Agent:  a.attrs.Position,
		Intent: contract.IntentSiteURLs,
		Input:  rec.Description(),
	})
	if err != nil {
		return a.fail(err)
	}
	if err := rec.SetExternalURLs(urls); err != nil {
		return a.fail(err)
	}

	a.logger.Info(ctx, "external urls listed", zap.Int("count", len(urls)))
	return a.moveTo(ctx, StateFinished)
}
