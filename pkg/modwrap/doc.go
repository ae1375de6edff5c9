// SPDX-License-Identifier: MPL-2.0

// Package modwrap dispatches the optional lifecycle hooks of an installed
// module: load, unload, install and process.
//
// Hooks are capabilities. A module implements Loader, Unloader, Installer or
// Processor when it provides the hook, and Wrapper returns a fixed sentinel
// message for a hook the module lacks. Install additionally falls back to the
// conventional setup script under the module directory. Modules shipped as
// scripts are opened with OpenScriptModule, which inspects the module
// directory and returns the variant type matching the hooks present.
package modwrap
