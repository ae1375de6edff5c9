// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Bakobiibizo/module-validator-rust/internal/issue"
	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"
	"github.com/Bakobiibizo/module-validator-rust/pkg/subnet"

	"github.com/spf13/cobra"
)

// newVoteCommand copies the reference validator's weights on every
// configured subnet, once or on an interval.
func newVoteCommand(app *App) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Copy the reference validator's weights on each subnet",
		Long: `Copy the reference validator's weights on each subnet.

The reference validator must be registered on subnet.home_netuid or no
vote is sent. Each round looks up the operator's uid and the reference
validator's uid on every configured subnet, drops the operator's own uid from the reference
weights and submits the rest as the operator's vote. Subnet data is cached
and refreshed between rounds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}
			interval, err := cfg.Subnet.IntervalDuration()
			if err != nil {
				return err
			}
			kp, err := keys.Load(cfg.KeyDir, passphrase(cfg))
			if err != nil {
				return classify("load keys", cfg.KeyDir, err)
			}

			logger := app.logger(cfg, "vote")
			client := subnet.NewRPCClient(cfg.Subnet.NodeURL, app.HTTP, kp)
			cache := subnet.NewCache(client, cfg.Subnet.Netuids)
			loop := subnet.NewLoop(cache, client, subnet.LoopConfig{
				Self:      kp.Address(),
				Reference: cfg.Subnet.ReferenceValidator,
				Interval:  interval,
				Logger:    logger,
			})

			if err := cache.Refresh(ctx); err != nil {
				return issue.NewErrorContext().
					WithOperation("query subnets").
					WithResource(cfg.Subnet.NodeURL).
					WithSuggestion("Check subnet.node_url and that the node is reachable").
					WithIssue(issue.VoteFailedId).
					Wrap(err).
					BuildError()
			}
			uid, _, ok := cache.Lookup(cfg.Subnet.HomeNetuid, cfg.Subnet.ReferenceValidator)
			if !ok {
				return issue.NewErrorContext().
					WithOperation("resolve reference validator").
					WithResource(cfg.Subnet.ReferenceValidator).
					WithSuggestion(fmt.Sprintf("Check that the validator is registered on subnet %d (subnet.home_netuid)", cfg.Subnet.HomeNetuid)).
					WithSuggestion("Set subnet.reference_validator to a registered validator").
					WithIssue(issue.VoteFailedId).
					Wrap(fmt.Errorf("home subnet %d: %w", cfg.Subnet.HomeNetuid, subnet.ErrReferenceMissing)).
					BuildError()
			}
			logger.Info("reference validator", "subnet", cfg.Subnet.HomeNetuid, "uid", uid)

			if !once {
				return loop.Run(ctx)
			}

			results, err := loop.RunOnce(ctx)
			if err != nil {
				return err
			}
			voted := 0
			for _, res := range results {
				switch {
				case res.Err != nil:
					fmt.Fprintf(app.stdout, "%s subnet %d: %v\n", WarningStyle.Render("-"), res.Netuid, res.Err)
				case res.Receipt.Success:
					voted++
					fmt.Fprintf(app.stdout, "%s subnet %d: %d weight(s) %s\n", SuccessStyle.Render("✓"), res.Netuid, len(res.UIDs), res.Receipt.Extrinsic)
				default:
					fmt.Fprintf(app.stdout, "%s subnet %d: %s\n", ErrorStyle.Render("✗"), res.Netuid, res.Receipt.Error)
				}
			}
			fmt.Fprintf(app.stdout, "voted on %d of %d subnet(s)\n", voted, len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single round and exit")
	return cmd
}
