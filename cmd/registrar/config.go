// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/Bakobiibizo/module-validator-rust/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `registrar config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage registrar configuration",
		Long: `Manage registrar configuration.

Configuration is stored in:
  - Linux: ~/.config/registrar/config.cue
  - macOS: ~/Library/Application Support/registrar/config.cue
  - Windows: %APPDATA%\registrar\config.cue

Environment variables prefixed with REGISTRAR_ override file values
(REGISTRAR_STORAGE_DIR, REGISTRAR_SUBNET_NODE_URL, ...). KEY_FOLDER selects
the key directory and REGISTRAR_KEY_PASSPHRASE encrypts the private key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			out, err := config.Render(cfg, config.Format(format))
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(out)
			return err
		},
	}
	showCmd.Flags().StringVar(&format, "format", string(config.FormatCUE), "output format: cue, json or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return err
			}
			wrote, err := config.WriteDefault(path)
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
			} else {
				fmt.Fprintf(app.stdout, "%s %s already exists\n", SubtitleStyle.Render("•"), path)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

// configPath is --config when set, else the platform default.
func configPath(app *App) (string, error) {
	if app.configPath != "" {
		return app.configPath, nil
	}
	return config.DefaultPath()
}
