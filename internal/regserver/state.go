// SPDX-License-Identifier: MPL-2.0

package regserver

// State is the lifecycle state of a Server.
type State int32

const (
	// StateCreated means Start has not been called.
	StateCreated State = iota
	// StateStarting means Start is binding the listener.
	StateStarting
	// StateRunning means the server accepts requests.
	StateRunning
	// StateStopping means graceful shutdown is in progress.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal: start or serve failed.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is Stopped or Failed.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
