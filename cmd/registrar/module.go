// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/pkg/registrar"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// defaultSourceRoot holds module sources when no source is given.
const defaultSourceRoot = "module_registrar/modules"

// newModuleCommand creates the `registrar module` command tree.
func newModuleCommand(app *App) *cobra.Command {
	moduleCmd := &cobra.Command{
		Use:   "module",
		Short: "Manage registered modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	moduleCmd.AddCommand(
		newModuleAddCommand(app, "add", "Package a module source and register it"),
		newModuleAddCommand(app, "update", "Re-package a module source, replacing its entry"),
		newModuleRemoveCommand(app),
		newModuleListCommand(app),
		newModuleShowCommand(app),
		newModuleInstallCommand(app),
		newModuleFetchCommand(app),
		newModuleWatchCommand(app),
		newModuleHookCommand(app),
	)
	return moduleCmd
}

func newModuleAddCommand(app *App, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name> [source]",
		Short: short,
		Long: short + `.

The source defaults to ` + defaultSourceRoot + `/<name>. Files are filtered by the
configured extensions and ignore prefixes.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			source := defaultSource(name)
			if len(args) == 2 {
				source = args[1]
			}

			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			op := r.AddModule
			if use == "update" {
				op = r.UpdateModule
			}
			if err := op(cmd.Context(), name, source); err != nil {
				return classify(use+" module", source, err)
			}
			fmt.Fprintf(app.stdout, "%s Registered %s from %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name.String()), source)
			fmt.Fprintf(app.stdout, "  installer: %s\n", r.InstallerPath(name))
			return nil
		},
	}
}

func newModuleRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a module's registry entry and stored files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			if err := r.RemoveModule(name); err != nil {
				return classify("remove module", name.String(), err)
			}
			fmt.Fprintf(app.stdout, "%s Removed %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name.String()))
			return nil
		},
	}
}

func newModuleListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered modules",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			names := r.ListModules()
			if len(names) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No modules registered."))
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(app.stdout, n)
			}
			return nil
		},
	}
}

func newModuleShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the files packaged in a module's installer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := r.Entries(name)
			if err != nil {
				return classify("show module", name.String(), err)
			}

			var md strings.Builder
			fmt.Fprintf(&md, "# %s\n\n", name)
			fmt.Fprintf(&md, "Installer: `%s`\n\n", r.InstallerPath(name))
			md.WriteString("| File | Encoded size |\n|---|---:|\n")
			for _, e := range entries {
				fmt.Fprintf(&md, "| `%s` | %d |\n", e.Path, len(e.Content))
			}
			out, err := glamour.Render(md.String(), app.markdownStyle)
			if err != nil {
				return fmt.Errorf("render module listing: %w", err)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
}

func newModuleInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install <name>",
		Short: "Run a module's installer, recreating its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			if err := r.InstallModule(cmd.Context(), name, app.stdout, app.stderr); err != nil {
				return withExitStatus(classify("install module", name.String(), err))
			}
			return nil
		},
	}
}

func newModuleFetchCommand(app *App) *cobra.Command {
	var (
		from    string
		install bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "Import a module's installer from a remote registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			script, err := registrar.Fetch(cmd.Context(), app.HTTP, from, name)
			if err != nil {
				return classify("fetch module", name.String(), err)
			}
			if err := r.Import(cmd.Context(), name, script); err != nil {
				return classify("import module", name.String(), err)
			}
			fmt.Fprintf(app.stdout, "%s Imported %s from %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(name.String()), from)
			if !install {
				return nil
			}
			if err := r.InstallModule(cmd.Context(), name, app.stdout, app.stderr); err != nil {
				return withExitStatus(classify("install module", name.String(), err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "base URL of the remote registry (e.g. http://host:8080)")
	cmd.Flags().BoolVar(&install, "install", false, "run the installer after importing")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func moduleName(s string) (types.ModuleName, error) {
	name := types.ModuleName(s)
	if err := name.Validate(); err != nil {
		return "", classify("parse module name", s, err)
	}
	return name, nil
}

func defaultSource(name types.ModuleName) string {
	return filepath.Join(filepath.FromSlash(defaultSourceRoot), name.String())
}
