// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"

	"github.com/spf13/cobra"
)

// newKeysCommand creates the `registrar keys` command tree.
func newKeysCommand(app *App) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the operator key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the key pair unless it already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			kp, created, err := keys.Ensure(cfg.KeyDir, passphrase(cfg))
			if err != nil {
				return classify("initialize keys", cfg.KeyDir, err)
			}
			if created {
				fmt.Fprintf(app.stdout, "%s Created key pair in %s\n", SuccessStyle.Render("✓"), cfg.KeyDir)
			} else {
				fmt.Fprintf(app.stdout, "%s Key pair already present in %s\n", SubtitleStyle.Render("•"), cfg.KeyDir)
			}
			fmt.Fprintf(app.stdout, "  address: %s\n", CmdStyle.Render(kp.Address()))
			return nil
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the ss58 address and public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			kp, err := keys.Load(cfg.KeyDir, passphrase(cfg))
			if err != nil {
				return classify("load keys", cfg.KeyDir, err)
			}
			pub, err := kp.AuthorizedKey()
			if err != nil {
				return classify("encode public key", cfg.KeyDir, err)
			}
			fmt.Fprintf(app.stdout, "address:    %s\n", kp.Address())
			fmt.Fprintf(app.stdout, "public key: %s\n", pub)
			return nil
		},
	})

	return keysCmd
}
