// SPDX-License-Identifier: MPL-2.0

package shellbuiltin

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"mvdan.cc/sh/v3/interp"
)

// DefaultRegistry holds the builtins used by installer and hook scripts.
var DefaultRegistry = NewRegistry(newMkdirCommand(), newBase64Command())

// Registry is a fixed set of builtins keyed by name. It is never modified
// after NewRegistry returns, so it is safe to share between runners.
type Registry map[string]Command

// NewRegistry builds a Registry from cmds. Empty or repeated names are
// programming errors and panic.
func NewRegistry(cmds ...Command) Registry {
	r := make(Registry, len(cmds))
	for _, c := range cmds {
		name := c.Name()
		switch _, dup := r[name]; {
		case name == "":
			panic("shellbuiltin: builtin without a name")
		case dup:
			panic(fmt.Sprintf("shellbuiltin: builtin %q defined twice", name))
		}
		r[name] = c
	}
	return r
}

// Names lists the builtins alphabetically.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// ExecMiddleware intercepts calls to builtins and hands anything else to
// next. A failing builtin is not retried as a host binary.
func (r Registry) ExecMiddleware() func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				if cmd, ok := r[args[0]]; ok {
					return cmd.Run(ctx, args)
				}
			}
			return next(ctx, args)
		}
	}
}
