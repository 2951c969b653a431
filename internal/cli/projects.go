package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ynput/ayon-backend-sub000/internal/application/services"
	"github.com/ynput/ayon-backend-sub000/internal/bootstrap"
	"github.com/ynput/ayon-backend-sub000/internal/domain/models"
	"github.com/ynput/ayon-backend-sub000/pkg/auth"
)

func newProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project bundle commands",
		Long: color.GreenString(`Freeze a project to its own addon versions or return it to the
studio bundle.`),
	}

	cmd.AddCommand(newFreezeCommand())
	cmd.AddCommand(newUnfreezeCommand())
	cmd.AddCommand(newProjectBundleCommand())
	return cmd
}

func newFreezeCommand() *cobra.Command {
	var (
		variant string
		addons  []string
	)

	cmd := &cobra.Command{
		Use:   "freeze <project>",
		Short: "Freeze a project to a project bundle",
		Args:  exactArgs(1, "a project name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := parseAddonPairs(addons)
			if err != nil {
				return err
			}
			req := services.FreezeRequest{Variant: variant, Addons: versions}

			return withApp(cmd, func(app *bootstrap.App) error {
				color.Yellow("Freezing project %s (%s)", args[0], variant)
				if err := app.Services.ProjectBundles.Freeze(cmd.Context(), auth.SystemUser(), args[0], req); err != nil {
					return err
				}
				color.Green("Project %s now uses %s", args[0], models.ProjectBundleName(args[0], variant))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&variant, "variant", models.VariantProduction, "production or staging")
	cmd.Flags().StringSliceVar(&addons, "addon", nil, "Addon version as name=version, repeatable")
	return cmd
}

func newUnfreezeCommand() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "unfreeze <project>",
		Short: "Return a project to the studio bundle",
		Args:  exactArgs(1, "a project name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				color.Yellow("Unfreezing project %s (%s)", args[0], variant)
				if err := app.Services.ProjectBundles.Unfreeze(cmd.Context(), auth.SystemUser(), args[0], variant); err != nil {
					return err
				}
				color.Green("Project %s follows the studio bundle", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&variant, "variant", models.VariantProduction, "production or staging")
	return cmd
}

func newProjectBundleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Show the bundles a project is frozen to",
		Args:  exactArgs(1, "a project name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				refs, err := app.Services.ProjectBundles.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(refs) == 0 {
					color.Cyan("Project %s is not frozen", args[0])
					return nil
				}
				variants := make([]string, 0, len(refs))
				for v := range refs {
					variants = append(variants, v)
				}
				sort.Strings(variants)
				for _, v := range variants {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", v, refs[v])
				}
				return nil
			})
		},
	}
}

// parseAddonPairs reads name=version flags. An empty version disables the addon.
func parseAddonPairs(pairs []string) (map[string]*string, error) {
	out := make(map[string]*string, len(pairs))
	for _, p := range pairs {
		name, version, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid addon %q, expected name=version", p)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("addon %s given twice", name)
		}
		version = strings.TrimSpace(version)
		if version == "" {
			out[name] = nil
			continue
		}
		out[name] = models.StrPtr(version)
	}
	return out, nil
}
