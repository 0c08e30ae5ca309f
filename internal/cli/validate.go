package cli

import (
	"fmt"
	"os"

	"github.com/couchcryptid/location-import-service/internal/importer"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check a CSV file without touching the store",
		Long: `Validate decodes the file with the same rules as import and reports the
site type each row would get, or why it would be skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := getSettings(cmd)

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			report, err := importer.Validate(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.output == outputJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				t := newTable(out, "Line", "Name", "City", "State", "Result")
				for _, r := range report.Rows {
					result := r.SiteType
					if r.Skipped {
						result = "skip: " + r.Reason
					}
					t.AppendRow(table.Row{r.Line, r.Name, r.City, r.State, result})
				}
				t.Render()
				if _, err := fmt.Fprintf(out, "%d valid, %d skipped\n", report.Valid, report.Skipped); err != nil {
					return err
				}
			}

			if strict && report.Skipped > 0 {
				return fmt.Errorf("%d rows would be skipped", report.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any row would be skipped")
	return cmd
}
