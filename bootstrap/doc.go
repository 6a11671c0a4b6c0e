// Package bootstrap hosts streamop pipelines with a uniform lifecycle.
//
// An App validates typed configuration, initialises the logger and, when
// exporter endpoints are configured, the OpenTelemetry tracer and meter
// providers. Operators are registered as components, started in order and
// stopped in reverse order so each parallel operator runs its deferred bulk
// work after its upstream has finished.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	op, _ := flatmap.New(cfg.Operator, tokenize, sink)
//	app.RegisterComponent(op)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return feed(ctx, op)
//	})
package bootstrap
