// SPDX-License-Identifier: MPL-2.0

// Package shellbuiltin provides in-process implementations of the few
// external utilities generated installer and hook scripts rely on (mkdir,
// base64), so that those scripts run inside the mvdan/sh interpreter without
// depending on host binaries.
//
// Commands are registered in a Registry and exposed to the interpreter via
// ExecMiddleware. Unregistered commands fall through to the next exec handler
// (normally the host PATH lookup).
package shellbuiltin
