// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the registrar CLI.
//
// An ActionableError carries the failed operation, the resource involved and
// suggested fixes. It may also point at an Issue from the catalog, a longer
// Markdown explanation rendered with glamour when the CLI reports the error.
package issue
