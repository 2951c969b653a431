package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ynput/ayon-backend-sub000/internal/bootstrap"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
)

func newDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the settings tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			color.Yellow("Initializing database %s on %s:%s", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
			app, err := bootstrap.Start(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			if err := app.Close(); err != nil {
				color.Red("Warning: failed to close database: %v", err)
			}
			color.Green("Database initialized successfully!")
			return nil
		},
	})
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		session auth.UserSession
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Issue an API token signed with JWT_SECRET",
		Args:  exactArgs(1, "a user name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			session.Name = args[0]
			token, err := auth.NewSigner(loadConfig().JWTSecret, ttl).GenerateToken(session)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&session.IsAdmin, "admin", false, "Grant administrator rights")
	cmd.Flags().BoolVar(&session.IsManager, "manager", false, "Grant manager rights")
	cmd.Flags().StringSliceVar(&session.WritableProjects, "project", nil, "Project the user may configure, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
