// SPDX-License-Identifier: MPL-2.0

// Package registry persists the module registry: a JSON object mapping each
// module name to the JSON encoding of its payload.
//
// On disk every value is a JSON string holding the JSON text of the payload,
// so a value that is itself a string (the usual base64 installer) appears
// quoted twice. Load removes exactly one layer and Persist adds exactly one,
// which keeps repeated load/save cycles stable.
package registry
