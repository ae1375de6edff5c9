// SPDX-License-Identifier: MPL-2.0

package modwrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Bakobiibizo/module-validator-rust/internal/shellbuiltin"
)

// HookRuntime selects how shell hooks run.
type HookRuntime string

const (
	// RuntimeNative runs shell hooks with the host bash (or sh).
	RuntimeNative HookRuntime = "native"
	// RuntimeVirtual runs shell hooks in the built-in interpreter.
	RuntimeVirtual HookRuntime = "virtual"
)

// DefaultModulesDir is the modules directory relative to the project root.
const DefaultModulesDir = "modules"

// Options configures hook execution for Wrapper and script modules.
type Options struct {
	// Root is the project root, the working directory of every hook.
	// Empty means the current directory.
	Root string
	// ModulesDir is relative to Root. Empty means DefaultModulesDir.
	ModulesDir string
	// Runtime selects how .sh hooks run. Empty means RuntimeNative.
	Runtime HookRuntime
	// Python overrides the interpreter for .py hooks. Empty means the
	// project's .venv interpreter when present, else python3.
	Python string
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "."
	}
	if o.ModulesDir == "" {
		o.ModulesDir = DefaultModulesDir
	}
	if o.Runtime == "" {
		o.Runtime = RuntimeNative
	}
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Stderr == nil {
		o.Stderr = io.Discard
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

func (o Options) moduleDir(name string) string {
	return filepath.Join(o.Root, o.ModulesDir, name)
}

// python returns the interpreter for .py hooks.
func (o Options) python() string {
	if o.Python != "" {
		return o.Python
	}
	venv := filepath.Join(o.Root, ".venv", "bin", "python")
	if runtime.GOOS == "windows" {
		venv = filepath.Join(o.Root, ".venv", "Scripts", "python.exe")
	}
	if _, err := os.Stat(venv); err == nil {
		return venv
	}
	return "python3"
}

// runScript executes a hook script with Root as working directory.
func (o Options) runScript(ctx context.Context, script string, args []string, stdout, stderr io.Writer) error {
	o.Logger.Debug("running hook", "script", script, "runtime", o.Runtime, "args", args)

	if strings.HasSuffix(script, ".sh") && o.Runtime == RuntimeVirtual {
		content, err := os.ReadFile(script)
		if err != nil {
			return fmt.Errorf("read hook: %w", err)
		}
		return shellbuiltin.Run(ctx, string(content), script, shellbuiltin.RunOptions{
			Dir:    o.Root,
			Args:   args,
			Stdout: stdout,
			Stderr: stderr,
		})
	}

	abs, err := filepath.Abs(script)
	if err != nil {
		return fmt.Errorf("resolve hook path: %w", err)
	}

	var interpreter string
	switch {
	case strings.HasSuffix(script, ".sh"):
		interpreter = "bash"
		if _, err := exec.LookPath(interpreter); err != nil {
			interpreter = "sh"
		}
	case strings.HasSuffix(script, ".py"):
		interpreter = o.python()
	default:
		return fmt.Errorf("unsupported hook type: %s", filepath.Base(script))
	}

	cmd := exec.CommandContext(ctx, interpreter, append([]string{abs}, args...)...)
	cmd.Dir = o.Root
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// findHook returns the first existing file among candidates inside dir.
func findHook(dir string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
