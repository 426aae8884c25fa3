package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fernandomesquita/stenopro/app"
	"github.com/fernandomesquita/stenopro/auth"
	"github.com/fernandomesquita/stenopro/database"
	"github.com/fernandomesquita/stenopro/database/migration"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/transcript"
	"github.com/fernandomesquita/stenopro/validation"
)

func serveCmd(ctx context.Context, g globals, args []string, _ io.Writer) error {
	if len(args) > 0 {
		return usageError("serve")
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	svc, err := app.Build(cfg)
	if err != nil {
		return err
	}
	return svc.App.Run(ctx)
}

func runCmd(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	id, err := recordID("run <id>", args)
	if err != nil {
		return err
	}
	return task(ctx, g, id, stdout, func(ctx context.Context, svc *app.Service) error {
		return svc.Orchestrator.Run(ctx, id)
	})
}

func reprocessCmd(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	id, err := recordID("reprocess <id>", args)
	if err != nil {
		return err
	}
	return task(ctx, g, id, stdout, func(ctx context.Context, svc *app.Service) error {
		return svc.Orchestrator.Reprocess(ctx, id)
	})
}

func recordID(usage string, args []string) (uint, error) {
	if len(args) != 1 {
		return 0, usageError(usage)
	}
	id, err := validation.ParseID("id", args[0])
	if err != nil {
		return 0, usageError(usage + ": " + err.Error())
	}
	return id, nil
}

// task runs fn synchronously on a worker without HTTP and reports the
// record's final state. A failed record is an error.
func task(ctx context.Context, g globals, id uint, stdout io.Writer, fn func(context.Context, *app.Service) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	svc, err := app.Build(cfg, app.WithoutHTTP())
	if err != nil {
		return err
	}

	var rec *transcript.Transcription
	err = svc.App.RunTask(ctx, func(ctx context.Context) error {
		if err := fn(ctx, svc); err != nil {
			return err
		}
		rec, err = svc.Records.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	return report(stdout, rec)
}

func report(w io.Writer, rec *transcript.Transcription) error {
	fmt.Fprintf(w, "transcription %d: %s\n", rec.ID, rec.Status)
	if rec.Status == transcript.StatusError {
		msg := "unknown error"
		if rec.ErrorMessage != nil {
			msg = *rec.ErrorMessage
		}
		return fmt.Errorf("transcription %d failed: %s", rec.ID, msg)
	}
	return nil
}

func migrateCmd(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	action := "up"
	if len(args) > 1 {
		return usageError("migrate [up|down|version]")
	}
	if len(args) == 1 {
		action = args[0]
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.Logging, cfg.Name)

	db, err := database.New(ctx, cfg.Database, logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Driver == database.DriverSQLite {
		if action != "up" {
			return fmt.Errorf("migrate %s is only supported on postgres", action)
		}
		if err := db.AutoMigrate(app.Models()...); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "schema up to date")
		return nil
	}

	switch action {
	case "up":
		err = migration.Up(ctx, db)
	case "down":
		err = migration.Down(ctx, db)
	case "version":
		v, dirty, verr := migration.Version(db)
		if verr != nil {
			return verr
		}
		fmt.Fprintf(stdout, "version %d dirty=%t\n", v, dirty)
		return nil
	default:
		return usageError("migrate [up|down|version]")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "migrate %s done\n", action)
	return nil
}

func tokenCmd(_ context.Context, g globals, args []string, stdout io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return usageError("token <subject>")
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	cfg.Auth.ApplyDefaults()
	svc, err := auth.NewService(cfg.Auth)
	if err != nil {
		return err
	}
	token, err := svc.Issue(args[0], 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stdout, "expires %s\n", time.Now().Add(cfg.Auth.TokenTTL).UTC().Format(time.RFC3339))
	return nil
}
