// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/Bakobiibizo/module-validator-rust/pkg/modwrap"

	"github.com/spf13/cobra"
)

// hookActions are the lifecycle operations exposed by `module hook`.
var hookActions = []string{"load", "unload", "install", "process"}

// newModuleHookCommand runs one lifecycle hook of an installed module.
func newModuleHookCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "hook <name> <load|unload|install|process> [args...]",
		Short:     "Run a lifecycle hook of an installed module",
		ValidArgs: hookActions,
		Long: `Run a lifecycle hook of an installed module.

Hooks are scripts in modules/<name>/: load_<name>.sh, unload_<name>.sh and
<name>.sh or <name>.py for process. Install runs setup_<name>.sh or
setup_<name>.py.
A module without the requested hook reports that instead of failing.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			opts := app.hookOptions(cfg)
			m, err := modwrap.OpenScriptModule(name, opts)
			if err != nil {
				return classify("open module", name.String(), err)
			}
			w := modwrap.New(m, opts)
			app.logger(cfg, "hook").Debug("module opened", "module", name, "kind", w.Kind())

			out, err := runHook(cmd.Context(), w, args[1], args[2:])
			if err != nil {
				return classify(args[1]+" module", name.String(), err)
			}
			fmt.Fprintln(app.stdout, out)
			return nil
		},
	}
}

func runHook(ctx context.Context, w *modwrap.Wrapper, action string, args []string) (string, error) {
	switch action {
	case "load":
		return w.Load(ctx)
	case "unload":
		return w.Unload(ctx)
	case "install":
		return w.Install(ctx, args)
	case "process":
		return w.Process(ctx, args)
	default:
		return "", fmt.Errorf("unknown hook %q (want one of %v)", action, hookActions)
	}
}
