// Package telemetry wires OpenTelemetry tracing and metrics for autodev.
//
// Spans cover each generation call ("contract.invoke") and each agent run
// ("agent.execute"). Export goes to an OTLP collector over gRPC or
// HTTP/protobuf and is disabled by default.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("autodev/contract")
package telemetry
