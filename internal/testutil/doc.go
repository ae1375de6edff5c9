// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test helpers shared across packages: Must* wrappers
// that fail the test on error, and a FakeClock for code that waits on time.
package testutil
