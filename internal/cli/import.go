package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/memory"
	"github.com/couchcryptid/location-import-service/internal/app"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: domain.ImportJobDescription,
		Long: `Import reads the CSV file, creates or updates every State, City and site
it names, and records the run as a job result with its log. Rows whose name
does not end in -DC or -BR are logged and skipped. The command exits non-zero
when the import fails.`,
		Example: `  locctl import sites.csv
  locctl import --storage postgres -o json sites.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := getSettings(cmd)
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			// The upload only lives for this process.
			metrics := observability.NewMetricsWith(prometheus.NewRegistry())
			a, err := app.New(ctx, s.cfg, s.logger, metrics, app.Options{Blobs: memory.New()})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			job, runErr := a.Runner.RunFile(ctx, filepath.Base(args[0]), f)
			if job.ID == "" {
				return runErr
			}
			if err := printJob(cmd.OutOrStdout(), s.output, job); err != nil {
				return err
			}
			return runErr
		},
	}
}

func printJob(w io.Writer, output string, job domain.JobResult) error {
	if output == outputJSON {
		return writeJSON(w, job)
	}
	sum := job.Summary
	_, err := fmt.Fprintf(w,
		"Job %s %s\n  rows: %d\n  skipped: %d\n  states created: %d\n  cities created: %d\n  sites created: %d\n  sites updated: %d\n  geocoded: %d\n",
		job.ID, job.Status, sum.Rows, sum.Skipped, sum.StatesCreated, sum.CitiesCreated,
		sum.SitesCreated, sum.SitesUpdated, sum.Geocoded,
	)
	if err == nil && job.Error != "" {
		_, err = fmt.Fprintf(w, "  error: %s\n", job.Error)
	}
	return err
}
