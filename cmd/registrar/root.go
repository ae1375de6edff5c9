// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the registrar CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Bakobiibizo/module-validator-rust/internal/config"
	"github.com/Bakobiibizo/module-validator-rust/pkg/modwrap"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registrar"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, I/O and HTTP through it.
	App struct {
		Config ConfigProvider
		HTTP   *http.Client

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		// markdownStyle is the glamour style for issue guidance and listings.
		markdownStyle string

		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config        ConfigProvider
		HTTP          *http.Client
		Stdin         io.Reader
		Stdout        io.Writer
		Stderr        io.Writer
		MarkdownStyle string
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:        deps.Config,
		HTTP:          deps.HTTP,
		stdin:         deps.Stdin,
		stdout:        deps.Stdout,
		stderr:        deps.Stderr,
		markdownStyle: deps.MarkdownStyle,
	}
	if app.Config == nil {
		app.Config = config.Loader{}
	}
	if app.HTTP == nil {
		app.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.markdownStyle == "" {
		app.markdownStyle = "auto"
	}
	return app
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "registrar",
		Short: "Package, register and install modules",
		Long: TitleStyle.Render("registrar") + SubtitleStyle.Render(" - package, register and install modules") + `

registrar walks a module source directory, packages its files into a
self-extracting bash installer and stores the installer in a JSON
registry. Registries can be served over HTTP and installers fetched and
run on another host.

` + SubtitleStyle.Render("Examples:") + `
  registrar module add demo ./src/demo     Package ./src/demo as "demo"
  registrar module install demo            Recreate modules/demo from its installer
  registrar serve                          Serve the registry over HTTP
  registrar module fetch demo --from URL   Import "demo" from another registry
  registrar menu                           Interactive add/update/remove/list loop`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/registrar/config.cue)")

	rootCmd.AddCommand(
		newModuleCommand(app),
		newMenuCommand(app),
		newKeysCommand(app),
		newServeCommand(app),
		newVoteCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the command's status.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.writeError(w, err)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
}

// logger returns a stderr logger at the configured level; --verbose forces
// debug.
func (a *App) logger(cfg *config.Config, prefix string) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	level := log.InfoLevel
	if cfg != nil {
		if l, err := log.ParseLevel(string(cfg.LogLevel)); err == nil {
			level = l
		}
	}
	if a.verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

// newRegistrar builds a Registrar from the loaded configuration.
func (a *App) newRegistrar(ctx context.Context) (*registrar.Registrar, *config.Config, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := registrar.New(registrar.Options{
		ModulesDir:   cfg.ModulesDir,
		StorageDir:   cfg.StorageDir,
		KeyDir:       cfg.KeyDir,
		RegistryFile: cfg.RegistryFile,
		Passphrase:   passphrase(cfg),
		Ignore:       cfg.Ignore,
		Extensions:   cfg.Extensions,
		Logger:       a.logger(cfg, "registrar"),
	})
	if err != nil {
		return nil, nil, classify("open registry", cfg.StorageDir, err)
	}
	return r, cfg, nil
}

// hookOptions maps the configuration onto module hook execution. Hooks run
// from the parent of the modules directory.
func (a *App) hookOptions(cfg *config.Config) modwrap.Options {
	return modwrap.Options{
		Root:       filepath.Dir(cfg.ModulesDir),
		ModulesDir: filepath.Base(cfg.ModulesDir),
		Runtime:    modwrap.HookRuntime(cfg.HookRuntime),
		Python:     cfg.Python,
		Stdout:     a.stdout,
		Stderr:     a.stderr,
		Logger:     a.logger(cfg, "hook"),
	}
}

func passphrase(cfg *config.Config) []byte {
	if cfg.KeyPassphrase == "" {
		return nil
	}
	return []byte(cfg.KeyPassphrase)
}
