// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// FormatCUE renders the configuration as a loadable config.cue.
	FormatCUE Format = "cue"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatTOML renders TOML.
	FormatTOML Format = "toml"
)

// Format names an output format for Render.
type Format string

// Render encodes cfg in the given format.
func Render(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatCUE, "":
		return []byte(GenerateCUE(cfg)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode config as json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatTOML:
		data, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encode config as toml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want cue, json or toml)", format)
	}
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// Registrar configuration file.\n")
	sb.WriteString("// Environment variables prefixed with " + EnvPrefix + "_ override these values.\n\n")

	fmt.Fprintf(&sb, "modules_dir:   %q\n", cfg.ModulesDir)
	fmt.Fprintf(&sb, "storage_dir:   %q\n", cfg.StorageDir)
	fmt.Fprintf(&sb, "key_dir:       %q\n", cfg.KeyDir)
	fmt.Fprintf(&sb, "registry_file: %q\n", cfg.RegistryFile)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "ignore: %s\n", cueStrings(cfg.Ignore))
	fmt.Fprintf(&sb, "extensions: %s\n", cueStrings(cfg.Extensions))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "log_level:    %q\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "hook_runtime: %q\n", cfg.HookRuntime)
	if cfg.Python != "" {
		fmt.Fprintf(&sb, "python:       %q\n", cfg.Python)
	}

	sb.WriteString("\nserver: {\n")
	fmt.Fprintf(&sb, "\taddr: %q\n", cfg.Server.Addr)
	sb.WriteString("}\n")

	sb.WriteString("\nsubnet: {\n")
	fmt.Fprintf(&sb, "\tnode_url: %q\n", cfg.Subnet.NodeURL)
	nums := make([]string, len(cfg.Subnet.Netuids))
	for i, n := range cfg.Subnet.Netuids {
		nums[i] = fmt.Sprint(n)
	}
	fmt.Fprintf(&sb, "\tnetuids: [%s]\n", strings.Join(nums, ", "))
	fmt.Fprintf(&sb, "\thome_netuid: %d\n", cfg.Subnet.HomeNetuid)
	fmt.Fprintf(&sb, "\treference_validator: %q\n", cfg.Subnet.ReferenceValidator)
	fmt.Fprintf(&sb, "\tinterval: %q\n", cfg.Subnet.Interval)
	sb.WriteString("}\n")

	return sb.String()
}

func cueStrings(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
