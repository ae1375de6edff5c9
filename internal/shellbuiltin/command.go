// SPDX-License-Identifier: MPL-2.0

package shellbuiltin

import (
	"context"
	"fmt"
	"io"

	"mvdan.cc/sh/v3/interp"
)

type (
	// Command is an in-process utility callable from a shell script.
	Command interface {
		// Name returns the command name as typed in scripts (e.g., "mkdir").
		Name() string

		// Run executes the command. args[0] is the command name.
		// A non-zero exit is reported by returning interp.NewExitStatus.
		Run(ctx context.Context, args []string) error
	}

	// HandlerContext is the subset of the interpreter's handler context a
	// builtin needs.
	HandlerContext struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		Dir    string
	}

	handlerContextKey struct{}
)

// WithHandlerContext stores a HandlerContext in ctx. Builtins prefer it over
// the interpreter's context, which lets tests call Run directly.
func WithHandlerContext(ctx context.Context, hc *HandlerContext) context.Context {
	return context.WithValue(ctx, handlerContextKey{}, hc)
}

// GetHandlerContext returns the HandlerContext stored by WithHandlerContext,
// or the one derived from the mvdan/sh interpreter.
func GetHandlerContext(ctx context.Context) *HandlerContext {
	if hc, ok := ctx.Value(handlerContextKey{}).(*HandlerContext); ok {
		return hc
	}
	ihc := interp.HandlerCtx(ctx)
	hc := &HandlerContext{
		Stdout: ihc.Stdout,
		Stderr: ihc.Stderr,
		Dir:    ihc.Dir,
	}
	if ihc.Stdin != nil {
		hc.Stdin = ihc.Stdin
	}
	return hc
}

// fail writes a prefixed diagnostic to stderr and returns exit status 1.
func fail(hc *HandlerContext, name string, err error) error {
	if hc.Stderr != nil {
		fmt.Fprintf(hc.Stderr, "[builtin] %s: %v\n", name, err)
	}
	return interp.NewExitStatus(1)
}
