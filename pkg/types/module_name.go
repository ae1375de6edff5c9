// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ReservedPublicKeyField is the registry field that carries the operator's
// public key. It can never be used as a module name.
const ReservedPublicKeyField = "public_key"

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

type (
	// ModuleName names a module in the registry and its directory under the
	// modules root. A valid name is a single path segment: non-empty, no
	// separators, not "." or "..", no leading dash and not a reserved field.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName fails validation.
	InvalidModuleNameError struct {
		Value  ModuleName
		Reason string
	}
)

// String returns the string representation of the ModuleName.
func (n ModuleName) String() string { return string(n) }

// IsValid returns whether the ModuleName is valid.
func (n ModuleName) IsValid() (bool, []error) {
	if err := n.Validate(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Validate returns an *InvalidModuleNameError describing the first problem
// found, or nil.
func (n ModuleName) Validate() error {
	s := string(n)
	switch {
	case strings.TrimSpace(s) == "":
		return &InvalidModuleNameError{Value: n, Reason: "must not be empty"}
	case s != strings.TrimSpace(s):
		return &InvalidModuleNameError{Value: n, Reason: "must not have surrounding whitespace"}
	case s == "." || s == "..":
		return &InvalidModuleNameError{Value: n, Reason: "must not be a relative directory reference"}
	case strings.ContainsAny(s, `/\`):
		return &InvalidModuleNameError{Value: n, Reason: "must not contain path separators"}
	case strings.ContainsRune(s, 0):
		return &InvalidModuleNameError{Value: n, Reason: "must not contain NUL bytes"}
	case strings.HasPrefix(s, "-"):
		return &InvalidModuleNameError{Value: n, Reason: "must not start with a dash"}
	case s == ReservedPublicKeyField:
		return &InvalidModuleNameError{Value: n, Reason: "is reserved"}
	}
	return nil
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }
