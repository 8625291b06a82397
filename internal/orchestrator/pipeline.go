package orchestrator

import (
	"context"

	"github.com/fyrsmithlabs/autodev/internal/project"
)

// Result is the outcome of one run. It is returned alongside the error when
// an agent fails, so callers can show how far the run got.
type Result struct {
	RunID   string           `json:"run_id"`
	Goal    string           `json:"goal"`
	Record  project.Snapshot `json:"record"`
	Reports []AgentReport    `json:"reports"`
}

// Pipeline starts independent runs over shared dependencies. It is safe for
// concurrent use when its dependencies are.
type Pipeline struct {
	deps Dependencies
	opts []Option
}

// NewPipeline creates a Pipeline running StandardAgents.
func NewPipeline(deps Dependencies, opts ...Option) *Pipeline {
	return &Pipeline{deps: deps, opts: opts}
}

// Run creates a Manager for request and executes it. The Result is nil only
// when the run could not be created.
func (p *Pipeline) Run(ctx context.Context, request string, opts ...Option) (*Result, error) {
	all := append(append([]Option(nil), p.opts...), opts...)
	if p.deps.Logger != nil {
		all = append([]Option{WithLogger(p.deps.Logger.Named("orchestrator"))}, all...)
	}
	if p.deps.Tracer != nil {
		all = append([]Option{WithTracer(p.deps.Tracer)}, all...)
	}

	m, err := New(ctx, p.deps.Caller(), request, StandardAgents(p.deps), all...)
	if err != nil {
		return nil, err
	}

	reports, err := m.Execute(ctx)
	return &Result{
		RunID:   m.RunID(),
		Goal:    m.Record().Description(),
		Record:  m.Record().Snapshot(),
		Reports: reports,
	}, err
}
