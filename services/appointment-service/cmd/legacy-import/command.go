package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/spf13/cobra"
)

type importOptions struct {
	logger *slog.Logger
	reader legacy.FileReader
	newID  func() string
	save   func(ctx context.Context, appts []model.Appointment) error
}

func newImportCmd(opts importOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "legacy-import <file-path>",
		Short: "Import appointments from a legacy XML export",
		Long: `Repairs and parses a legacy XML export. Valid appointments are stored
together with their outbox events in one transaction; rejected records are listed.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", config.Bool("LEGACY_IMPORT_DRY_RUN", false), "parse and report without storing")
	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions, path string, dryRun bool) error {
	maxBytes, err := config.Int("LEGACY_IMPORT_MAX_BYTES", 64<<20)
	if err != nil {
		return err
	}
	reader := opts.reader
	if reader == nil {
		reader = legacy.OSFileReader{MaxBytes: int64(maxBytes)}
	}
	importer := legacy.NewImporter(reader, catalog.Default(), opts.logger, legacy.Config{NewID: opts.newID})

	ctx := cmd.Context()
	res, err := importer.Import(ctx, path)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "records: %d, imported: %d, rejected: %d\n", res.Total(), len(res.Successes), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(out, "  %s: %s", f.RecordID, f.Kind)
		if f.Detail != "" {
			fmt.Fprintf(out, " (%s)", f.Detail)
		}
		fmt.Fprintln(out)
	}
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(out, "dry run: nothing stored")
		return nil
	}
	if len(res.Successes) == 0 {
		return nil
	}
	if err := opts.save(ctx, res.Successes); err != nil {
		return fmt.Errorf("store imported appointments: %w", err)
	}
	fmt.Fprintf(out, "stored %d appointments\n", len(res.Successes))
	return nil
}
