// SPDX-License-Identifier: MPL-2.0

package shellbuiltin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// RunOptions configures an in-process script run.
	RunOptions struct {
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env is the environment in KEY=VALUE form. Nil means os.Environ().
		Env []string
		// Args are the positional parameters ($1, $2, ...).
		Args   []string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		// Registry supplies the builtins. Nil means DefaultRegistry.
		Registry Registry
	}

	// ExitError reports a script that finished with a non-zero status.
	ExitError struct {
		Status int
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Status)
}

// Run parses script as bash and executes it in-process.
// Registered builtins shadow host binaries; every other command falls
// through to the interpreter's PATH lookup.
func Run(ctx context.Context, script, name string, opts RunOptions) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	dir := opts.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runnerOpts := []interp.RunnerOption{
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(opts.Stdin, stdout, stderr),
		interp.ExecHandlers(reg.ExecMiddleware()),
	}
	if len(opts.Args) > 0 {
		// "--" keeps arguments starting with a dash from being read as
		// shell options.
		runnerOpts = append(runnerOpts, interp.Params(append([]string{"--"}, opts.Args...)...))
	}

	runner, err := interp.New(runnerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &ExitError{Status: int(status)}
		}
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}
