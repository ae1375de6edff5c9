// SPDX-License-Identifier: MPL-2.0

package modwrap

import (
	"context"
	"fmt"
)

// Wrapper dispatches lifecycle hooks to a module.
type Wrapper struct {
	module Module
	opts   Options
}

// New wraps m. Hooks run with the project root in opts as working directory.
func New(m Module, opts Options) *Wrapper {
	return &Wrapper{module: m, opts: opts.withDefaults()}
}

// Module returns the wrapped module.
func (w *Wrapper) Module() Module { return w.module }

// Kind classifies the wrapped module.
func (w *Wrapper) Kind() Kind { return KindOf(w.module) }

// Load runs the load hook, or reports MsgLoaded when there is none.
func (w *Wrapper) Load(ctx context.Context) (string, error) {
	if l, ok := w.module.(Loader); ok {
		return l.Load(ctx)
	}
	return MsgLoaded, nil
}

// Unload runs the unload hook, or reports MsgUnloaded when there is none.
func (w *Wrapper) Unload(ctx context.Context) (string, error) {
	if u, ok := w.module.(Unloader); ok {
		return u.Unload(ctx)
	}
	return MsgUnloaded, nil
}

// Process runs the process hook, or reports MsgProcessFailed when there is
// none.
func (w *Wrapper) Process(ctx context.Context, args []string) (string, error) {
	if p, ok := w.module.(Processor); ok {
		return p.Process(ctx, args)
	}
	return MsgProcessFailed, nil
}

// Install delegates to the module's Installer when it has one. Otherwise it
// runs modules/<name>/setup_<name>.sh, or setup_<name>.py, from the project
// root. A failing script is reported in the returned message, not as an
// error; MsgSetupMissing means no setup script exists.
func (w *Wrapper) Install(ctx context.Context, args []string) (string, error) {
	if in, ok := w.module.(Installer); ok {
		return in.Install(ctx, args)
	}

	name := w.module.Name().String()
	script, ok := findHook(w.opts.moduleDir(name), "setup_"+name+".sh", "setup_"+name+".py")
	if !ok {
		w.opts.Logger.Debug("no setup script", "module", name)
		return MsgSetupMissing, nil
	}

	if err := w.opts.runScript(ctx, script, args, w.opts.Stdout, w.opts.Stderr); err != nil {
		w.opts.Logger.Warn("setup script failed", "module", name, "error", err)
		return fmt.Sprintf(msgSetupFailed, err), nil
	}
	return MsgSetupOK, nil
}
