// Package orchestrator runs one pipeline: it turns the raw user request into
// a project goal, then drives each agent to completion against a single
// project record.
//
// # Flow
//
//	request -> goal (Project Manager) -> Solutions Architect -> URL Validator -> Backend Developer
//
// Agents run strictly one at a time. After each agent the Manager emits an
// AgentReport through the report callback, records an "agent.execute" span and
// updates the Prometheus agent metrics.
//
// # Failure policy
//
// By default the first agent error stops the run. With ContinueOnError the
// Manager logs the error and moves on to the next agent; the first error is
// still returned from Execute.
//
// # Usage
//
//	deps := orchestrator.Dependencies{Generator: client, Template: tmpl, Store: store, Prober: prober}
//	m, err := orchestrator.New(ctx, deps.Caller(), request, orchestrator.StandardAgents(deps))
//	if err != nil {
//	    return err
//	}
//	reports, err := m.Execute(ctx)
package orchestrator
