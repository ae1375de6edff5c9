// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/pkg/registrar"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"

	"github.com/spf13/cobra"
)

// errMenuExit ends the menu loop.
var errMenuExit = errors.New("exit")

type menuOption struct {
	key   string
	label string
	run   func(ctx context.Context) error
}

// newMenuCommand is the interactive entry point: one module name, then an
// Add/Update/Remove/List/Exit loop against it.
func newMenuCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "menu [name]",
		Short: "Interactive add/update/remove/list loop for one module",
		Long: `Interactive add/update/remove/list loop for one module.

The module name is prompted for when not given. Add and Update package
` + defaultSourceRoot + `/<name>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewScanner(app.stdin)

			raw := ""
			if len(args) == 1 {
				raw = args[0]
			} else {
				fmt.Fprint(app.stdout, "Module_name: ")
				if !in.Scan() {
					return in.Err()
				}
				raw = strings.TrimSpace(in.Text())
			}
			name, err := moduleName(raw)
			if err != nil {
				return err
			}

			r, _, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			return runMenu(cmd.Context(), app, in, r, name)
		},
	}
}

func runMenu(ctx context.Context, app *App, in *bufio.Scanner, r *registrar.Registrar, name types.ModuleName) error {
	source := defaultSource(name)
	options := []menuOption{
		{key: "1", label: "Add Module", run: func(ctx context.Context) error {
			return classify("add module", source, r.AddModule(ctx, name, source))
		}},
		{key: "2", label: "Update Module", run: func(ctx context.Context) error {
			return classify("update module", source, r.UpdateModule(ctx, name, source))
		}},
		{key: "3", label: "Remove Module", run: func(context.Context) error {
			return classify("remove module", name.String(), r.RemoveModule(name))
		}},
		{key: "4", label: "List Modules", run: func(context.Context) error {
			fmt.Fprintf(app.stdout, "Modules: %s\n", strings.Join(r.ListModules(), ", "))
			return nil
		}},
		{key: "5", label: "Exit", run: func(context.Context) error { return errMenuExit }},
	}

	for {
		fmt.Fprintf(app.stdout, "\n%s %d module(s) registered\n", TitleStyle.Render("Module Registry:"), len(r.ListModules()))
		fmt.Fprintln(app.stdout, "\nOptions:")
		for _, o := range options {
			fmt.Fprintf(app.stdout, "%s. %s\n", o.key, o.label)
		}
		fmt.Fprint(app.stdout, "Enter your choice: ")

		if !in.Scan() {
			return in.Err()
		}
		choice := strings.TrimSpace(in.Text())

		var picked *menuOption
		for i := range options {
			if options[i].key == choice {
				picked = &options[i]
				break
			}
		}
		if picked == nil {
			fmt.Fprintln(app.stdout, WarningStyle.Render("Invalid choice. Please try again."))
			continue
		}

		switch err := picked.run(ctx); {
		case errors.Is(err, errMenuExit):
			return nil
		case err != nil:
			app.writeError(app.stderr, err)
		default:
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), picked.label)
		}
	}
}
