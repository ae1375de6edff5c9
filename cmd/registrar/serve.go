// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bakobiibizo/module-validator-rust/internal/issue"
	"github.com/Bakobiibizo/module-validator-rust/internal/regserver"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// newServeCommand serves the registry over HTTP until interrupted.
func newServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		Long: `Serve the registry over HTTP.

Routes:
  GET /modules          registered module names
  GET /modules/{name}   the module's registry payload
  GET /public_key       the operator public key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			r, cfg, err := app.newRegistrar(ctx)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			srv := regserver.New(regserver.Config{
				Addr:     addr,
				Registry: r,
				Logger:   app.logger(cfg, "serve"),
			})
			if err := srv.Start(ctx); err != nil {
				return issue.NewErrorContext().
					WithOperation("start registry server").
					WithResource(addr).
					WithSuggestion("Pick a free address with --addr or server.addr").
					WithIssue(issue.ServerStartFailedId).
					Wrap(err).
					BuildError()
			}
			fmt.Fprintf(app.stdout, "%s Serving %d module(s) at %s\n",
				SuccessStyle.Render("✓"), len(r.ListModules()), CmdStyle.Render(srv.URL()))

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-srv.Err():
			}

			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}
