package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run returns the command error after the tracer has been flushed. cobra has
// already printed it to stderr.
func run(args []string, stdout, stderr io.Writer) error {
	service := config.String("SERVICE_NAME", "legacy-import")
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	cmd := newImportCmd(importOptions{
		logger: logger,
		save:   saveToPostgres,
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func saveToPostgres(ctx context.Context, appts []model.Appointment) error {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	store := storage.NewStore(pool, storage.NewRepository(pool), outbox.NewRepository(pool))
	return storage.SaveImported(ctx, store, appts)
}
