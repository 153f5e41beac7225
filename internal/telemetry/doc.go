// Package telemetry wires OpenTelemetry tracing and metrics for studydocs.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. Export is disabled by default.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("studydocs/mcp").Start(ctx, "mcp.read_document")
//	defer span.End()
//
// A provider that fails to initialize marks the instance degraded. Tracer and
// Meter then fall back to the global no-op providers.
//
// Tests use TestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	// exercise code with tt.Telemetry
//	tt.AssertSpanExists(t, "mcp.read_document")
//	total := tt.CounterTotal(t, "studydocs.mcp.tool.invocations")
package telemetry
