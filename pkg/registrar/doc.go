// SPDX-License-Identifier: MPL-2.0

// Package registrar packages module source trees into installers, keeps them
// in the registry and reinstalls them on demand.
//
// A Registrar is created ready for use: New ensures the storage and modules
// directories, loads the registry and bootstraps key material. All mutations
// persist the registry immediately.
package registrar
