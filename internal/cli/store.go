package cli

import (
	"fmt"

	"github.com/couchcryptid/location-import-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/location-import-service/internal/adapter/storage"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := getSettings(cmd)
			ctx := cmd.Context()

			// Opening a SQL store applies pending migrations.
			store, err := storage.Open(ctx, s.cfg.Storage(), s.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sqlStore, ok := store.(*sqlstore.Store)
			if !ok {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s store has no schema\n", s.cfg.StorageDriver)
				return err
			}
			version, err := sqlStore.MigrationVersion(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", sqlStore.Dialect(), version)
			return err
		},
	}
}

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the State, City, Data Center and Branch location types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := getSettings(cmd)
			ctx := cmd.Context()

			store, err := storage.Open(ctx, s.cfg.Storage(), s.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			types, err := storage.Bootstrap(ctx, store)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.output == outputJSON {
				return writeJSON(out, types)
			}
			names := make(map[string]string, len(types))
			for _, lt := range types {
				names[lt.ID] = lt.Name
			}
			t := newTable(out, "Type", "Parent")
			for _, lt := range types {
				parent := "-"
				if lt.ParentID != nil {
					parent = names[*lt.ParentID]
				}
				t.AppendRow(table.Row{lt.Name, parent})
			}
			t.Render()
			return nil
		},
	}
}

func newLocationsCmd() *cobra.Command {
	var filter domain.LocationFilter

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List stored locations",
		Example: `  locctl locations --type "Data Center"
  locctl locations --parent 5f0c... -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := getSettings(cmd)
			ctx := cmd.Context()

			store, err := storage.Open(ctx, s.cfg.Storage(), s.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			locs, err := store.ListLocations(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.output == outputJSON {
				if locs == nil {
					locs = []domain.Location{}
				}
				return writeJSON(out, locs)
			}
			if len(locs) == 0 {
				_, err = fmt.Fprintln(out, "(0 locations)")
				return err
			}
			t := newTable(out, "ID", "Name", "Type", "Status", "Parent", "Lat", "Lon")
			for _, l := range locs {
				t.AppendRow(table.Row{
					l.ID, l.Name, l.LocationType, l.Status, optional(l.ParentID),
					coordinate(l.Latitude), coordinate(l.Longitude),
				})
			}
			t.Render()
			_, err = fmt.Fprintf(out, "(%d locations)\n", len(locs))
			return err
		},
	}

	cmd.Flags().StringVar(&filter.LocationType, "type", "", "Only locations of this type")
	cmd.Flags().StringVar(&filter.ParentID, "parent", "", "Only children of this location id")
	return cmd
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func coordinate(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *f)
}
