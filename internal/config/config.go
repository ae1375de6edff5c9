// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "registrar"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. REGISTRAR_STORAGE_DIR.
	EnvPrefix = "REGISTRAR"
	// LegacyKeyDirEnv selects the key directory like REGISTRAR_KEY_DIR.
	LegacyKeyDirEnv = "KEY_FOLDER"

	// ConfigDirEnv replaces the platform configuration directory.
	ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

	maxConfigFileSize = 1 << 20
)

type (
	// LoadOptions selects where configuration is read from. Zero values
	// fall back to the platform lookup.
	LoadOptions struct {
		ConfigFilePath string
		ConfigDirPath  string
	}

	// Loader reads configuration layered as defaults, then file, then
	// environment.
	Loader struct{}
)

// Load returns the validated configuration.
func (Loader) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

// LoadWithPath also reports the file that was read; the path is empty when
// only defaults and environment applied.
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns $REGISTRAR_CONFIG_DIR when set, otherwise the registrar
// directory under the platform config root.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// DefaultPath is the config file inside ConfigDir.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without package
// level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	if err := bindEnv(v); err != nil {
		return nil, "", err
	}

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", loadError(path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check environment overrides prefixed with " + EnvPrefix + "_").
			WithSuggestion("Run 'registrar config show' to see the effective values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

// resolvePath picks the explicit file, then the platform file, then
// ./config.cue. An empty result means defaults only.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'registrar config init' to write a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, nil
	}
	if p := ConfigFileName + "." + ConfigFileExt; fileExists(p) {
		return p, nil
	}
	return "", nil
}

func loadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the configuration values match the expected schema").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("modules_dir", d.ModulesDir)
	v.SetDefault("storage_dir", d.StorageDir)
	v.SetDefault("key_dir", d.KeyDir)
	v.SetDefault("registry_file", d.RegistryFile)
	v.SetDefault("ignore", d.Ignore)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("log_level", string(d.LogLevel))
	v.SetDefault("hook_runtime", string(d.HookRuntime))
	v.SetDefault("python", d.Python)
	v.SetDefault("key_passphrase", "")
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("subnet.node_url", d.Subnet.NodeURL)
	v.SetDefault("subnet.netuids", d.Subnet.Netuids)
	v.SetDefault("subnet.home_netuid", d.Subnet.HomeNetuid)
	v.SetDefault("subnet.reference_validator", d.Subnet.ReferenceValidator)
	v.SetDefault("subnet.interval", d.Subnet.Interval)
}

// bindEnv maps REGISTRAR_<KEY> (dots become underscores) onto every key and
// lets KEY_FOLDER stand in for REGISTRAR_KEY_DIR.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("key_dir", EnvPrefix+"_KEY_DIR", LegacyKeyDirEnv); err != nil {
		return fmt.Errorf("bind %s: %w", LegacyKeyDirEnv, err)
	}
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and
// merges it into v. Fields are optional, so validation is not concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	configMap, err := decodeCUE(data, path)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func decodeCUE(data []byte, path string) (map[string]any, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatCUEError(err, path)
	}
	return configMap, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if fileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
