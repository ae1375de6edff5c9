// SPDX-License-Identifier: MPL-2.0

// Package watch re-packages a module when its source tree changes.
//
// A Watcher monitors every non-ignored directory under a module source and
// calls OnChange once per burst of changes to accepted files (by extension),
// after a quiet debounce period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor write-then-rename sequences.
const defaultDebounce = 500 * time.Millisecond

// editorNoise is always ignored on top of the configured name prefixes.
var editorNoise = []string{"**/*.swp", "**/*.swo", "**/*~", "**/.DS_Store"}

var errRunTwice = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Source is the module source directory.
		Source string
		// Extensions selects the files whose changes count (e.g. ".sh").
		// Empty means every non-ignored file.
		Extensions []string
		// IgnorePrefixes are file and directory name prefixes excluded from
		// watching, as used when packaging.
		IgnorePrefixes []string
		// Debounce is the quiet period before OnChange fires. Zero means
		// 500ms.
		Debounce time.Duration
		// OnChange receives the changed paths relative to Source.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *log.Logger
	}

	// Watcher monitors a module source. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		patterns []string
		debounce time.Duration
		baseDir  string
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New resolves Source, validates the derived glob patterns and registers
// every non-ignored directory with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if cfg.Source == "" {
		return nil, errors.New("watch: source directory is required")
	}
	absBase, err := filepath.Abs(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve source directory: %w", err)
	}
	if info, err := os.Stat(absBase); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Source)
	}

	ignores := append(PrefixPatterns(cfg.IgnorePrefixes), editorNoise...)
	patterns := ExtensionPatterns(cfg.Extensions)
	for _, pat := range append(slices.Clone(ignores), patterns...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  ignores,
		patterns: patterns,
		debounce: debounce,
		baseDir:  absBase,
		logger:   logger,
	}
	if err := w.addDirectories(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// PrefixPatterns turns name prefixes into doublestar patterns matching the
// named entries and everything below them. A trailing slash on a prefix is
// dropped.
func PrefixPatterns(prefixes []string) []string {
	var out []string
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		quoted := escapeGlob(p)
		out = append(out, "**/"+quoted+"*", "**/"+quoted+"*/**")
	}
	return out
}

// ExtensionPatterns turns file suffixes into doublestar patterns.
func ExtensionPatterns(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, "**/*"+escapeGlob(e))
	}
	return out
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when fsnotify fails irrecoverably.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errRunTwice
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire skips while a previous callback is still running and retries
	// after another debounce period so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous update still running; deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Info("source changed", "files", changed)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("update failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) && w.maybeAddDir(evt.Name) {
				continue
			}
			if !w.matchesPatterns(rel) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.baseDir {
			rel, relErr := filepath.Rel(w.baseDir, path)
			if relErr != nil || w.isIgnored(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk source tree: %w", err)
	}
	return nil
}

// maybeAddDir watches a newly created directory and reports whether path was
// a directory.
func (w *Watcher) maybeAddDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "error", err)
	}
	return true
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, filepath.ToSlash(rel))
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.patterns) == 0 || matchAny(w.patterns, filepath.ToSlash(rel))
}

func matchAny(patterns []string, path string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isFatalFsnotifyError reports errors after which the watcher no longer
// delivers events.
func isFatalFsnotifyError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && slices.Contains(fatalErrnos, errno)
}
