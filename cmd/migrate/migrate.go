// Package migrate provides the migrate-changes command.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/auditlog-go/internal/conf"
	"github.com/tphakala/auditlog-go/internal/datastore"
	"github.com/tphakala/auditlog-go/internal/migration"
)

// Command creates and returns the migrate-changes command
func Command(settings *conf.Settings) *cobra.Command {
	var opts migration.Options

	cmd := &cobra.Command{
		Use:   "migrate-changes",
		Short: "Migrate legacy changes_text records to the JSON changes column",
		Long: `Converts every log entry that still holds legacy text-serialized changes
into the structured JSON changes column.

By default records are converted in the application and written back in
batches. With -d/--database the conversion runs as a single native SQL
statement inside the database instead; engines without an implemented
statement fail immediately. Records whose legacy text does not parse are
reported and left pending for a later run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, settings, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.CheckOnly, "check", false,
		"Just check the status of the migration")
	cmd.Flags().StringVarP(&opts.Engine, "database", "d", "",
		fmt.Sprintf("Use native database operations for the given engine (%s). Otherwise batched updates are used.",
			strings.Join(migration.KnownEngines, ", ")))
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", migration.DefaultBatchSize,
		"Split the migration into multiple batches. If 0, then no batching will be done. Ignored with -d/--database.")
	cmd.Flags().BoolVarP(&opts.MigrateM2M, "migrate-m2m", "m", false,
		"Also migrate the old patched m2m change shape")

	return cmd
}

func runMigrate(cmd *cobra.Command, settings *conf.Settings, opts migration.Options) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}

	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	runner := migration.NewRunner(store, settings.Auditlog.UseTextChangesFallback)
	report, err := runner.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	printReport(cmd, settings, &report)
	return nil
}

func printReport(cmd *cobra.Command, settings *conf.Settings, report *migration.Report) {
	out := cmd.OutOrStdout()

	if report.AlreadyMigrated {
		fmt.Fprintln(out, "All records have been migrated.")
		if settings.Auditlog.UseTextChangesFallback {
			fmt.Fprintln(out, "You can now disable auditlog.usetextchangesfallback in the configuration.")
		}
		return
	}

	fmt.Fprintf(out, "There are %d records that need migration.\n", report.PendingBefore)
	if report.CheckOnly {
		return
	}

	switch report.Path {
	case migration.PathNative:
		fmt.Fprintf(out, "Updated %d records using native database operations.\n", report.Updated)
	case migration.PathBatch:
		fmt.Fprintf(out, "Updated %d records using batched updates.\n", report.Updated)
	}

	if len(report.FailedIDs) > 0 {
		fmt.Fprintf(out, "Failed to convert the changes of %d records into JSON, they were not included in this run: %v\n",
			len(report.FailedIDs), report.FailedIDs)
	}

	if report.PendingAfter == 0 {
		fmt.Fprintln(out, "All records have been migrated.")
	} else {
		fmt.Fprintf(out, "There are still %d records pending migration.\n", report.PendingAfter)
	}
}
