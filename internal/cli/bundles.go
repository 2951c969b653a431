package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/bootstrap"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
)

func newBundlesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Bundle commands",
		Long: color.GreenString(`Inspect and promote bundles.

A bundle pins the addon versions served to production, staging or a
developer.`),
	}

	cmd.AddCommand(newBundlesListCommand())
	cmd.AddCommand(newBundlesPromoteCommand())
	return cmd
}

func newBundlesListCommand() *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				list, err := app.Services.Bundles.List(cmd.Context(), archived)
				if err != nil {
					return err
				}
				return printBundles(cmd.OutOrStdout(), list)
			})
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived bundles")
	return cmd
}

func newBundlesPromoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <bundle>",
		Short: "Promote the staging bundle to production",
		Args:  exactArgs(1, "a bundle name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				color.Yellow("Promoting bundle %s", args[0])
				if err := app.Services.Bundles.Promote(cmd.Context(), auth.SystemUser(), args[0]); err != nil {
					return err
				}
				color.Green("Bundle %s is now the production bundle", args[0])
				return nil
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	var (
		req          services.MigrateRequest
		skipProjects bool
	)

	cmd := &cobra.Command{
		Use:   "migrate <source-bundle> <target-bundle>",
		Short: "Copy settings overrides between bundles",
		Long: color.GreenString(`Copy studio and project overrides from one bundle to another.

Overrides are converted between addon versions when the target bundle
uses a different version. The target overrides are replaced.`),
		Args: exactArgs(2, "a source and a target bundle"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SourceBundle, req.TargetBundle = args[0], args[1]
			withProjects := !skipProjects
			req.WithProjects = &withProjects

			return withApp(cmd, func(app *bootstrap.App) error {
				color.Yellow("Migrating %s (%s) to %s (%s)", req.SourceBundle, req.SourceVariant, req.TargetBundle, req.TargetVariant)
				if err := app.Services.Migration.Migrate(cmd.Context(), auth.SystemUser(), req); err != nil {
					return err
				}
				color.Green("Settings migrated")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.SourceVariant, "from-variant", models.VariantProduction, "Variant the source overrides are read from")
	cmd.Flags().StringVar(&req.TargetVariant, "to-variant", models.VariantStaging, "Variant the overrides are written to")
	cmd.Flags().BoolVar(&skipProjects, "skip-projects", false, "Only migrate studio overrides")
	return cmd
}

func printBundles(w io.Writer, list *models.BundleList) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tADDONS")
	for _, b := range list.Bundles {
		status := b.Status()
		switch {
		case b.IsDev:
			status = "dev"
			if b.ActiveUser != nil {
				status += " (" + *b.ActiveUser + ")"
			}
		case b.IsArchived:
			status = "archived"
		case status == "":
			status = "-"
		}
		pairs := make([]string, 0, len(b.Addons))
		for _, name := range b.AddonNames() {
			v, _ := b.AddonVersion(name)
			pairs = append(pairs, name+"="+v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name, status, strings.Join(pairs, " "))
	}
	return tw.Flush()
}
