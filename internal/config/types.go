// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"
)

const (
	// HookRuntimeNative runs shell hooks with the host shell.
	HookRuntimeNative HookRuntime = "native"
	// HookRuntimeVirtual runs shell hooks in the embedded interpreter.
	HookRuntimeVirtual HookRuntime = "virtual"

	// DefaultReferenceValidator is the validator whose weights are copied.
	DefaultReferenceValidator = "5FjUVoQCdAc9sGei7dVxtR8jnbf656CrWn4dnH8yoTWxXERs"
	// DefaultHomeNetuid is the subnet the reference validator must be
	// registered on before a vote starts.
	DefaultHomeNetuid = 10
)

var (
	// ErrInvalidHookRuntime is returned when a HookRuntime value is not recognized.
	ErrInvalidHookRuntime = errors.New("invalid hook runtime")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// HookRuntime selects how module shell hooks run.
	HookRuntime string

	// LogLevel is one of debug, info, warn or error.
	LogLevel string

	// InvalidConfigError collects field-level validation errors. It wraps
	// ErrInvalidConfig for errors.Is.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the registrar configuration.
	Config struct {
		// ModulesDir is where installers materialize module files.
		ModulesDir string `json:"modules_dir" toml:"modules_dir" mapstructure:"modules_dir"`
		// StorageDir holds the registry file and generated installers.
		StorageDir string `json:"storage_dir" toml:"storage_dir" mapstructure:"storage_dir"`
		// KeyDir holds the operator key pair.
		KeyDir string `json:"key_dir" toml:"key_dir" mapstructure:"key_dir"`
		// RegistryFile is the registry file name inside StorageDir.
		RegistryFile string `json:"registry_file" toml:"registry_file" mapstructure:"registry_file"`
		// Ignore lists name prefixes skipped when packaging.
		Ignore []string `json:"ignore" toml:"ignore" mapstructure:"ignore"`
		// Extensions lists the file suffixes packaged into installers.
		Extensions []string `json:"extensions" toml:"extensions" mapstructure:"extensions"`
		LogLevel   LogLevel `json:"log_level" toml:"log_level" mapstructure:"log_level"`
		// HookRuntime selects how .sh hooks run.
		HookRuntime HookRuntime `json:"hook_runtime" toml:"hook_runtime" mapstructure:"hook_runtime"`
		// Python overrides the interpreter for .py hooks.
		Python string       `json:"python,omitempty" toml:"python,omitempty" mapstructure:"python"`
		Server ServerConfig `json:"server" toml:"server" mapstructure:"server"`
		Subnet SubnetConfig `json:"subnet" toml:"subnet" mapstructure:"subnet"`

		// KeyPassphrase encrypts the private key. It only comes from the
		// environment and is never rendered.
		KeyPassphrase string `json:"-" toml:"-" mapstructure:"key_passphrase"`
	}

	// ServerConfig configures the registry HTTP server.
	ServerConfig struct {
		Addr string `json:"addr" toml:"addr" mapstructure:"addr"`
	}

	// SubnetConfig configures the weight-copying vote loop.
	SubnetConfig struct {
		// NodeURL is the JSON-RPC endpoint of the chain node.
		NodeURL string `json:"node_url" toml:"node_url" mapstructure:"node_url"`
		// Netuids are the subnets voted on.
		Netuids []int `json:"netuids" toml:"netuids" mapstructure:"netuids"`
		// HomeNetuid is one of Netuids. Voting refuses to start when the
		// reference validator is not registered on it.
		HomeNetuid int `json:"home_netuid" toml:"home_netuid" mapstructure:"home_netuid"`
		// ReferenceValidator is the ss58 address whose weights are copied.
		ReferenceValidator string `json:"reference_validator" toml:"reference_validator" mapstructure:"reference_validator"`
		// Interval is a Go duration string between rounds.
		Interval string `json:"interval" toml:"interval" mapstructure:"interval"`
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so callers
// can match a specific field sentinel with errors.Is.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate returns an error if the HookRuntime is not native or virtual.
func (r HookRuntime) Validate() error {
	switch r {
	case HookRuntimeNative, HookRuntimeVirtual:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be native or virtual)", ErrInvalidHookRuntime, r)
	}
}

// Validate returns an error if the LogLevel is not recognized.
func (l LogLevel) Validate() error {
	switch l {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l)
	}
}

// IntervalDuration parses Interval.
func (s SubnetConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("subnet.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("subnet.interval: %s is not positive", s.Interval)
	}
	return d, nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	netuids := make([]int, 0, 18)
	for n := 3; n <= 20; n++ {
		netuids = append(netuids, n)
	}
	return &Config{
		ModulesDir:   "modules",
		StorageDir:   "modules",
		KeyDir:       "keys",
		RegistryFile: "registry.json",
		Ignore:       []string{"__pycache__", ".git", ".venv", "venv", "node_modules", "build", "dist"},
		Extensions:   []string{".py", ".sh", ".json", ".toml", ".txt", ".md", ".cfg", ".ini", ".yaml", ".yml", ".env"},
		LogLevel:     "info",
		HookRuntime:  HookRuntimeNative,
		Server:       ServerConfig{Addr: "127.0.0.1:8080"},
		Subnet: SubnetConfig{
			NodeURL:            "http://127.0.0.1:9944",
			Netuids:            netuids,
			HomeNetuid:         DefaultHomeNetuid,
			ReferenceValidator: DefaultReferenceValidator,
			Interval:           "60s",
		},
	}
}

// Validate checks the constraints CUE cannot express after environment
// overrides were applied.
func (c *Config) Validate() error {
	var errs []error
	for field, v := range map[string]string{
		"modules_dir":   c.ModulesDir,
		"storage_dir":   c.StorageDir,
		"key_dir":       c.KeyDir,
		"registry_file": c.RegistryFile,
		"server.addr":   c.Server.Addr,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s: must not be empty", field))
		}
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := c.HookRuntime.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hook_runtime: %w", err))
	}
	if _, err := c.Subnet.IntervalDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := keys.DecodeAddress(c.Subnet.ReferenceValidator); err != nil {
		errs = append(errs, fmt.Errorf("subnet.reference_validator: %w", err))
	}
	for _, n := range c.Subnet.Netuids {
		if n < 0 || n > 65535 {
			errs = append(errs, fmt.Errorf("subnet.netuids: %d out of range", n))
		}
	}
	if !slices.Contains(c.Subnet.Netuids, c.Subnet.HomeNetuid) {
		errs = append(errs, fmt.Errorf("subnet.home_netuid: %d is not in subnet.netuids", c.Subnet.HomeNetuid))
	}
	if len(errs) == 0 {
		return nil
	}
	// Map iteration is unordered.
	slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return &InvalidConfigError{FieldErrors: errs}
}
