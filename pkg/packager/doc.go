// SPDX-License-Identifier: MPL-2.0

// Package packager turns a module's source directory into a self-extracting
// installer script and runs such scripts to reconstitute the files.
//
// The pipeline is Walk (collect accepted files as base64 FileEntry values),
// GenerateInstaller (embed the entries in a bash script) and
// RunInstaller (execute the script in-process through mvdan/sh). Paths are
// embedded with the shell's own quoting rules, so no path can break out of
// its literal.
package packager
