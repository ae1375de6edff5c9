// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Stopper is implemented by servers with a context-bounded shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}

// MustChdir changes the working directory to dir and restores it on cleanup.
func MustChdir(t testing.TB, dir string) {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(original); err != nil {
			t.Errorf("failed to restore directory to %s: %v", original, err)
		}
	})
}

// MustWriteFile writes content to path, creating parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// DeferStop stops s on cleanup, logging rather than failing on error.
func DeferStop(t testing.TB, s Stopper) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			t.Logf("warning: stop returned error: %v", err)
		}
	})
}
