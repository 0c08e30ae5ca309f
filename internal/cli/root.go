// Package cli implements the locctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/location-import-service/internal/config"
	"github.com/spf13/cobra"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
)

// settingsKey is used to store per-invocation settings in the command context.
type settingsKey struct{}

type settings struct {
	cfg    *config.Config
	logger *slog.Logger
	output string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		storageDriver string
		sqlitePath    string
		output        string
		verbose       bool
	)

	rootCmd := &cobra.Command{
		Use:   "locctl",
		Short: "Import site locations from CSV into the location store",
		Long: `locctl loads CSV files of sites (name, city, state) into the location
hierarchy: a State, a City under it, and a Data Center or Branch site under
the City. Settings come from the same environment variables as the service;
flags override them for one invocation.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("storage") {
				cfg.StorageDriver = storageDriver
			}
			if flags.Changed("sqlite-path") {
				cfg.SQLitePath = sqlitePath
			}
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}

			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
				level = slog.LevelInfo
			}
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cmd.SetContext(context.WithValue(cmd.Context(), settingsKey{}, &settings{
				cfg:    cfg,
				logger: logger,
				output: output,
			}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", "", "Store backend: memory, sqlite or postgres (default $STORAGE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (default $SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputText, "Output format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{outputText, outputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("storage", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"memory", "sqlite", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newBootstrapCmd())
	rootCmd.AddCommand(newLocationsCmd())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getSettings(cmd *cobra.Command) *settings {
	if s, ok := cmd.Context().Value(settingsKey{}).(*settings); ok {
		return s
	}
	return &settings{
		cfg:    &config.Config{},
		logger: slog.New(slog.DiscardHandler),
		output: outputText,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
