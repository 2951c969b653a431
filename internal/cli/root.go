// Package cli implements settingsctl, the administration command line
// for bundles and settings. Commands run as the system user.
package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ynput/ayon-backend-sub000/internal/bootstrap"
	"github.com/ynput/ayon-backend-sub000/internal/config"
)

var (
	envFile   string
	addonsDir string
	verbose   bool
)

// Execute runs the root command
func Execute(ctx context.Context, version string) error {
	return newRootCommand(version).ExecuteContext(ctx)
}

func newRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "settingsctl",
		Short: "Manage addon bundles and settings",
		Long: color.CyanString(`settingsctl - addon settings administration

Promotes bundles, migrates settings between bundles and freezes
projects to their own addon versions.`),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to an env file")
	rootCmd.PersistentFlags().StringVar(&addonsDir, "addons-dir", "", "Addon manifest directory (overrides ADDONS_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newBundlesCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newProjectsCommand())
	rootCmd.AddCommand(newDBCommand())
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

func loadConfig() *config.Config {
	cfg := config.Load(envFile)
	if addonsDir != "" {
		cfg.AddonsDir = addonsDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	return cfg
}

// withApp connects, runs fn and closes the connection
func withApp(cmd *cobra.Command, fn func(app *bootstrap.App) error) error {
	app, err := bootstrap.Start(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			color.Red("Warning: failed to close database: %v", closeErr)
		}
	}()
	return fn(app)
}

func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("expected %s", names)
		}
		return nil
	}
}
