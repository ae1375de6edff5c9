// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	defaultExtensions = []string{".sh", ".py"}
	defaultIgnore     = []string{".venv", "data/", ".", "__py", "node_modules"}
)

type (
	// FileEntry is one packaged file: its slash-separated path relative to
	// the walked root and its base64 content.
	FileEntry struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}

	// WalkOptions controls which files Walk accepts.
	WalkOptions struct {
		// Extensions lists accepted file name suffixes. Nil means
		// DefaultExtensions.
		Extensions []string
		// Ignore lists name prefixes; matching directories are pruned and
		// matching files skipped. Nil means DefaultIgnore.
		Ignore []string
		// Logger receives per-entry debug traces and skip warnings.
		Logger *log.Logger
	}
)

// DefaultExtensions returns the accepted file suffixes used when
// WalkOptions.Extensions is nil.
func DefaultExtensions() []string { return slices.Clone(defaultExtensions) }

// DefaultIgnore returns the ignored name prefixes used when
// WalkOptions.Ignore is nil.
func DefaultIgnore() []string { return slices.Clone(defaultIgnore) }

// Walk returns the accepted files under root in lexical order.
//
// Entries that cannot be read or made relative to root are logged and
// skipped; only a missing or non-directory root is an error.
func Walk(root string, opts WalkOptions) ([]FileEntry, error) {
	exts := opts.Extensions
	if exts == nil {
		exts = defaultExtensions
	}
	ignore := opts.Ignore
	if ignore == nil {
		ignore = defaultIgnore
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk %s: not a directory", root)
	}

	logger.Debug("starting walk", "root", root, "ignore", ignore)

	var entries []FileEntry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && hasAnyPrefix(name, ignore) {
				logger.Debug("pruned directory", "path", path)
				return fs.SkipDir
			}
			return nil
		}

		if !hasAnySuffix(name, exts) || hasAnyPrefix(name, ignore) {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			logger.Debug("skipping file outside root", "path", path, "error", relErr)
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", readErr)
			return nil
		}

		entries = append(entries, FileEntry{
			Path:    filepath.ToSlash(rel),
			Content: Encode(content),
		})
		logger.Debug("packaged", "path", filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	logger.Debug("finished walk", "root", root, "files", len(entries))
	return entries, nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
