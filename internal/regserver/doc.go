// SPDX-License-Identifier: MPL-2.0

// Package regserver serves the module registry over HTTP so installing hosts
// can fetch installers by name.
//
// Routes:
//
//	GET /modules         JSON array of module names
//	GET /modules/{name}  JSON string holding the stored registry value
//	GET /public_key      the operator's public key, as a JSON string
//
// The server is single-use and follows the Created, Starting, Running,
// Stopping, Stopped (or Failed) lifecycle.
package regserver
