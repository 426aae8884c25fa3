// Package bootstrap runs a service through its lifecycle: start components,
// run hooks and configure callbacks, serve until a signal arrives, then stop
// everything in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(db)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return wireHandlers(a)
//	})
//	err = app.Run(ctx)
//
// RunTask uses the same lifecycle for one-shot commands that finish on
// their own.
package bootstrap
