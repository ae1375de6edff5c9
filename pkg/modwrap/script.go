// SPDX-License-Identifier: MPL-2.0

package modwrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// ErrModuleNotInstalled is returned when the module directory is missing.
var ErrModuleNotInstalled = errors.New("module not installed")

type (
	// scriptBase is shared by every script module variant.
	scriptBase struct {
		name types.ModuleName
		opts Options
	}

	loadHook struct {
		base *scriptBase
		path string
	}

	unloadHook struct {
		base *scriptBase
		path string
	}

	processHook struct {
		base *scriptBase
		path string
	}

	// BareScript is a script module without hooks.
	BareScript struct{ *scriptBase }

	// LoadOnlyScript has a load hook.
	LoadOnlyScript struct {
		*scriptBase
		loadHook
	}

	// ProcessOnlyScript has a process entry point only.
	ProcessOnlyScript struct {
		*scriptBase
		processHook
	}

	// LoadUnloadScript has load and unload hooks.
	LoadUnloadScript struct {
		*scriptBase
		loadHook
		unloadHook
	}

	// LoadProcessScript has a load hook and a process entry point.
	LoadProcessScript struct {
		*scriptBase
		loadHook
		processHook
	}

	// LifecycleScript has load, unload and process hooks.
	LifecycleScript struct {
		*scriptBase
		loadHook
		unloadHook
		processHook
	}
)

// OpenScriptModule inspects modules/<name>/ under opts.Root and returns the
// variant matching the hooks found:
//
//	load_<name>.sh      Load
//	unload_<name>.sh    Unload (ignored without a load hook)
//	<name>.sh|<name>.py Process
//
// Hooks print their result on stdout; the trimmed output is the hook's
// return value.
func OpenScriptModule(name types.ModuleName, opts Options) (Module, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	dir := opts.moduleDir(name.String())
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotInstalled, dir)
	}

	n := name.String()
	base := &scriptBase{name: name, opts: opts}
	load, hasLoad := findHook(dir, "load_"+n+".sh")
	unload, hasUnload := findHook(dir, "unload_"+n+".sh")
	process, hasProcess := findHook(dir, n+".sh", n+".py")

	if hasUnload && !hasLoad {
		opts.Logger.Warn("ignoring unload hook without load hook", "module", n, "hook", unload)
		hasUnload = false
	}

	switch {
	case hasLoad && hasUnload && hasProcess:
		return &LifecycleScript{base, loadHook{base, load}, unloadHook{base, unload}, processHook{base, process}}, nil
	case hasLoad && hasUnload:
		return &LoadUnloadScript{base, loadHook{base, load}, unloadHook{base, unload}}, nil
	case hasLoad && hasProcess:
		return &LoadProcessScript{base, loadHook{base, load}, processHook{base, process}}, nil
	case hasLoad:
		return &LoadOnlyScript{base, loadHook{base, load}}, nil
	case hasProcess:
		return &ProcessOnlyScript{base, processHook{base, process}}, nil
	default:
		return &BareScript{base}, nil
	}
}

// Name returns the module name.
func (b *scriptBase) Name() types.ModuleName { return b.name }

func (b *scriptBase) run(ctx context.Context, path string, args []string) (string, error) {
	var out bytes.Buffer
	if err := b.opts.runScript(ctx, path, args, &out, b.opts.Stderr); err != nil {
		return "", fmt.Errorf("%s hook %s: %w", b.name, path, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// Load runs load_<name>.sh.
func (h loadHook) Load(ctx context.Context) (string, error) {
	return h.base.run(ctx, h.path, nil)
}

// Unload runs unload_<name>.sh.
func (h unloadHook) Unload(ctx context.Context) (string, error) {
	return h.base.run(ctx, h.path, nil)
}

// Process runs the module entry point with args.
func (h processHook) Process(ctx context.Context, args []string) (string, error) {
	return h.base.run(ctx, h.path, args)
}
