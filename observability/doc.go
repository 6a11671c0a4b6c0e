// Package observability wires OpenTelemetry tracing and metrics for streamop.
//
// InitTracer and InitMeter install OTLP/HTTP exporters as the global
// providers; operators created without explicit providers report through
// them. OperatorMetrics holds the instruments a flat-map operator records,
// and OperatorTracer opens the span around a parallel Stop. Both take a
// StopOutcome once the bulk run is over.
//
//	traceCfg := observability.DefaultTracerConfig("ingest")
//	tp, err := observability.InitTracer(ctx, &traceCfg)
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
package observability
