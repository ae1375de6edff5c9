// SPDX-License-Identifier: MPL-2.0

// Package config handles registrar configuration using Viper with CUE as the
// file format.
//
// Configuration is read from an explicit --config path, else from
// config.cue in the platform config directory (registrar/config.cue under
// $XDG_CONFIG_HOME, ~/Library/Application Support or %APPDATA%), else from
// ./config.cue. Files are validated against the embedded config_schema.cue.
// Environment variables prefixed with REGISTRAR_ override file values, and
// the legacy KEY_FOLDER variable still selects the key directory.
package config
