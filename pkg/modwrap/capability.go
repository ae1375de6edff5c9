// SPDX-License-Identifier: MPL-2.0

package modwrap

import (
	"context"

	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// Results returned when a module does not provide a hook. They are outcomes,
// not errors.
const (
	MsgLoaded        = "Module loaded"
	MsgUnloaded      = "Module unloaded"
	MsgProcessFailed = "Module process failed"
	MsgSetupOK       = "Module setup successfully"
	MsgSetupMissing  = "Module setup failed"
	msgSetupFailed   = "Failed to setup module: %v"
)

// Kind classifies a module by the hooks it provides.
type Kind int

const (
	// KindBare provides no hooks.
	KindBare Kind = iota
	// KindLoadOnly provides Load only.
	KindLoadOnly
	// KindLoadProcess provides Load and Process.
	KindLoadProcess
	// KindFullLifecycle provides Load, Unload and Process.
	KindFullLifecycle
	// KindPartial is any other combination.
	KindPartial
)

type (
	// Module is an installed module.
	Module interface {
		Name() types.ModuleName
	}

	// Loader is implemented by modules with a load hook.
	Loader interface {
		Module
		Load(ctx context.Context) (string, error)
	}

	// Unloader is implemented by modules with an unload hook.
	Unloader interface {
		Module
		Unload(ctx context.Context) (string, error)
	}

	// Installer is implemented by modules that install themselves instead of
	// relying on the conventional setup script.
	Installer interface {
		Module
		Install(ctx context.Context, args []string) (string, error)
	}

	// Processor is implemented by modules with a process hook.
	Processor interface {
		Module
		Process(ctx context.Context, args []string) (string, error)
	}
)

// String returns a human readable kind name.
func (k Kind) String() string {
	switch k {
	case KindBare:
		return "bare"
	case KindLoadOnly:
		return "load-only"
	case KindLoadProcess:
		return "load+process"
	case KindFullLifecycle:
		return "full-lifecycle"
	default:
		return "partial"
	}
}

// KindOf classifies m by the capability interfaces it implements. Installer
// does not affect the kind since every module can be installed.
func KindOf(m Module) Kind {
	_, load := m.(Loader)
	_, unload := m.(Unloader)
	_, process := m.(Processor)

	switch {
	case !load && !unload && !process:
		return KindBare
	case load && !unload && !process:
		return KindLoadOnly
	case load && !unload && process:
		return KindLoadProcess
	case load && unload && process:
		return KindFullLifecycle
	default:
		return KindPartial
	}
}
