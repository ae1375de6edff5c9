// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in 0-255. Zero is success.
	ExitCode int

	// InvalidExitCodeError reports an ExitCode outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// ExitCodeFromStatus maps a script status onto an ExitCode. Statuses that
// do not fit a process exit code become 1, so a failure never reads as
// success.
func ExitCodeFromStatus(status int) ExitCode {
	if status < 0 || status > 255 {
		return 1
	}
	return ExitCode(status)
}

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d outside 0-255", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate reports codes outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// String returns the decimal form.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
