// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Bakobiibizo/module-validator-rust/internal/watch"

	"github.com/spf13/cobra"
)

// newModuleWatchCommand re-packages a module whenever its source changes.
// The module is registered once up front, then updated after every burst of
// changes until interrupted.
func newModuleWatchCommand(app *App) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <name> <source>",
		Short: "Re-package a module whenever its source changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := moduleName(args[0])
			if err != nil {
				return err
			}
			source := args[1]

			r, cfg, err := app.newRegistrar(cmd.Context())
			if err != nil {
				return err
			}
			if err := r.AddModule(cmd.Context(), name, source); err != nil {
				return classify("add module", source, err)
			}
			fmt.Fprintf(app.stdout, "%s Registered %s; watching %s (Ctrl+C to stop)\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(name.String()), source)

			logger := app.logger(cfg, "watch")
			w, err := watch.New(watch.Config{
				Source:         source,
				Extensions:     cfg.Extensions,
				IgnorePrefixes: cfg.Ignore,
				Debounce:       debounce,
				Logger:         logger,
				OnChange: func(ctx context.Context, changed []string) error {
					if err := r.UpdateModule(ctx, name, source); err != nil {
						return err
					}
					fmt.Fprintf(app.stdout, "%s Updated %s (%d file(s) changed)\n",
						SuccessStyle.Render("✓"), CmdStyle.Render(name.String()), len(changed))
					return nil
				},
			})
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-packaging")
	return cmd
}
