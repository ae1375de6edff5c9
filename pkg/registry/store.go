// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

var (
	// ErrNotFound is returned when a registry entry does not exist.
	ErrNotFound = errors.New("registry entry not found")
	// ErrCorrupt is returned when the registry file is not a JSON object.
	ErrCorrupt = errors.New("registry file is corrupt")
)

type (
	// Store is the registry held in memory and its backing JSON file.
	// It is safe for concurrent use; the file itself is not locked.
	Store struct {
		path          string
		publicKeyPath string
		logger        *log.Logger

		mu      sync.RWMutex
		entries map[string]any
	}

	// Option configures a Store.
	Option func(*Store)
)

// WithPublicKeyFile makes Load inject the trimmed contents of path under
// the reserved public_key field when the file exists.
func WithPublicKeyFile(path string) Option {
	return func(s *Store) { s.publicKeyPath = path }
}

// WithLogger sets the logger used for load and persist traces.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns an empty Store backed by path. Call Load to read it.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		logger:  log.New(io.Discard),
		entries: map[string]any{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the registry file path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory registry with the file contents. A missing
// file yields an empty registry.
func (s *Store) Load() error {
	entries := map[string]any{}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("registry file absent, starting empty", "path", s.path)
	case err != nil:
		return fmt.Errorf("read registry %s: %w", s.path, err)
	default:
		if entries, err = decodeFile(data); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
		}
	}

	if s.publicKeyPath != "" {
		key, keyErr := os.ReadFile(s.publicKeyPath)
		switch {
		case keyErr == nil:
			entries[types.ReservedPublicKeyField] = strings.TrimSpace(string(key))
		case !errors.Is(keyErr, fs.ErrNotExist):
			return fmt.Errorf("read public key %s: %w", s.publicKeyPath, keyErr)
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.Debug("registry loaded", "path", s.path, "entries", len(entries))
	return nil
}

// Get returns the payload stored under name.
func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[name]
	return v, ok
}

// GetString returns the payload under name when it is a string.
func (s *Store) GetString(name string) (string, bool) {
	v, ok := s.Get(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Encoded returns the JSON text of the payload under name, exactly the
// string stored in the file for that key.
func (s *Store) Encoded(name string) (string, error) {
	v, ok := s.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return encodeValue(v)
}

// Set inserts or overwrites the payload under name and persists. Byte slices
// are stored as their base64 text.
func (s *Store) Set(name string, payload any) error {
	s.mu.Lock()
	s.entries[name] = normalize(payload)
	s.mu.Unlock()
	return s.Persist()
}

// MergeEntry merges fields into the map stored under name (see Merge) and
// persists. A missing or non-map entry is replaced by fields.
func (s *Store) MergeEntry(name string, fields map[string]any) error {
	s.mu.Lock()
	merged := fields
	if old, ok := s.entries[name].(map[string]any); ok {
		merged = Merge(fields, old)
	}
	s.entries[name] = merged
	s.mu.Unlock()
	return s.Persist()
}

// Remove deletes name and persists. Removing an absent name is not an error.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
	return s.Persist()
}

// List returns all keys, reserved fields included, in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.entries))
}

// Persist writes the registry to disk, creating the parent directory.
func (s *Store) Persist() error {
	s.mu.RLock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		text, err := encodeValue(v)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("encode registry entry %q: %w", k, err)
		}
		out[k] = text
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace registry: %w", err)
	}

	s.logger.Debug("registry persisted", "path", s.path, "entries", len(out))
	return nil
}

// Merge returns old updated with new: nested maps merge recursively and any
// other value from new overwrites. Neither input is modified.
func Merge(newer, old map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(newer))
	maps.Copy(out, old)
	for k, v := range newer {
		nv, newIsMap := v.(map[string]any)
		ov, oldIsMap := out[k].(map[string]any)
		if newIsMap && oldIsMap {
			out[k] = Merge(nv, ov)
			continue
		}
		out[k] = v
	}
	return out
}

func decodeFile(data []byte) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make(map[string]any, len(raw))
	for k, msg := range raw {
		var text string
		if err := json.Unmarshal(msg, &text); err != nil {
			// Not the canonical string form; take the value as written.
			var v any
			if err := json.Unmarshal(msg, &v); err != nil {
				return nil, fmt.Errorf("entry %q: %w", k, err)
			}
			entries[k] = v
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			// A bare string, as the public key field is written.
			entries[k] = text
			continue
		}
		entries[k] = v
	}
	return entries, nil
}

func encodeValue(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(v)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b)
	}
	return v
}
