// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		newer map[string]any
		old   map[string]any
		want  map[string]any
	}{
		{
			name:  "nested maps merge",
			newer: map[string]any{"a": map[string]any{"x": 1}},
			old:   map[string]any{"a": map[string]any{"y": 2}, "b": 3},
			want:  map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": 3},
		},
		{
			name:  "leaf overwrites",
			newer: map[string]any{"a": "new"},
			old:   map[string]any{"a": "old", "c": true},
			want:  map[string]any{"a": "new", "c": true},
		},
		{
			name:  "map replaces scalar",
			newer: map[string]any{"a": map[string]any{"x": 1}},
			old:   map[string]any{"a": 5},
			want:  map[string]any{"a": map[string]any{"x": 1}},
		},
		{
			name:  "empty new",
			newer: map[string]any{},
			old:   map[string]any{"k": "v"},
			want:  map[string]any{"k": "v"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Merge(tt.newer, tt.old)); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	old := map[string]any{"a": map[string]any{"y": 2}}
	_ = Merge(map[string]any{"a": map[string]any{"x": 1}}, old)
	if diff := cmp.Diff(map[string]any{"a": map[string]any{"y": 2}}, old); diff != "" {
		t.Errorf("old modified (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestSetLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	payloads := map[string]any{
		"script": "IyEvYmluL3NoCg==",
		"meta":   map[string]any{"version": "1.0", "tags": []any{"a", "b"}},
	}
	for name, p := range payloads {
		if err := s.Set(name, p); err != nil {
			t.Fatalf("Set(%q) error = %v", name, err)
		}
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for name, want := range payloads {
		got, ok := reloaded.Get(name)
		if !ok {
			t.Errorf("Get(%q) missing after reload", name)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Get(%q) mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestRepeatedSaveIsStable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewStore(path)
	if err := s.Set("m", "abc"); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		again := NewStore(path)
		if err := again.Load(); err != nil {
			t.Fatal(err)
		}
		if err := again.Persist(); err != nil {
			t.Fatal(err)
		}
	}
	last, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(first), string(last)); diff != "" {
		t.Errorf("file drifted across load/persist cycles (-first +last):\n%s", diff)
	}
}

func TestPersistFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewStore(path)
	if err := s.Set("web", "<a&b>"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("raw", []byte{0x00, 0x01, 0xff}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "\n    \"raw\": ") {
		t.Errorf("expected 4-space indentation:\n%s", text)
	}
	if strings.Contains(text, `\u003c`) || strings.Contains(text, `\u0026`) {
		t.Errorf("HTML characters should not be escaped:\n%s", text)
	}

	var onDisk map[string]string
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("file is not a name -> string object: %v", err)
	}
	if onDisk["web"] != `"<a&b>"` {
		t.Errorf("web value = %q, want JSON-encoded string", onDisk["web"])
	}
	if onDisk["raw"] != `"AAH/"` {
		t.Errorf("raw value = %q, want base64 JSON string", onDisk["raw"])
	}
	if got, _ := s.GetString("raw"); got != "AAH/" {
		t.Errorf("GetString(raw) = %q, want base64 text", got)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewStore(path)
	if err := s.Set("keep", "k"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("drop", "d"); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove("absent"); err != nil {
		t.Errorf("Remove(absent) error = %v", err)
	}
	if diff := cmp.Diff([]string{"drop", "keep"}, s.List()); diff != "" {
		t.Errorf("List() after removing absent (-want +got):\n%s", diff)
	}

	if err := s.Remove("drop"); err != nil {
		t.Fatal(err)
	}
	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"keep"}, reloaded.List()); diff != "" {
		t.Errorf("List() after reload (-want +got):\n%s", diff)
	}
}

func TestMergeEntry(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	if err := s.MergeEntry("m", map[string]any{"a": map[string]any{"y": 2}, "b": 3}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeEntry("m", map[string]any{"a": map[string]any{"x": 1}}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get("m")
	want := map[string]any{"a": map[string]any{"x": 1, "y": 2}, "b": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeEntry() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInjectsPublicKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "public_key.pub")
	if err := os.WriteFile(keyPath, []byte("ssh-ed25519 AAAA test\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(filepath.Join(dir, "registry.json"), WithPublicKeyFile(keyPath))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if got, ok := s.GetString("public_key"); !ok || got != "ssh-ed25519 AAAA test" {
		t.Errorf("GetString(public_key) = %q, %v", got, ok)
	}

	missing := NewStore(filepath.Join(dir, "other.json"), WithPublicKeyFile(filepath.Join(dir, "nope.pub")))
	if err := missing.Load(); err != nil {
		t.Fatalf("Load() with absent key file error = %v", err)
	}
	if _, ok := missing.Get("public_key"); ok {
		t.Error("public_key injected without a key file")
	}
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte("[1,2,3]"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewStore(path).Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoadLegacyValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.json")
	legacy := `{"plain": "bare text", "object": {"k": "v"}, "encoded": "\"YWJj\""}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"plain":   "bare text",
		"object":  map[string]any{"k": "v"},
		"encoded": "YWJj",
	}
	for k, w := range want {
		got, _ := s.Get(k)
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("Get(%q) mismatch (-want +got):\n%s", k, diff)
		}
	}
}

func TestEncoded(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	if err := s.Set("m", "YWJj"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Encoded("m")
	if err != nil {
		t.Fatal(err)
	}
	if got != `"YWJj"` {
		t.Errorf("Encoded() = %q, want %q", got, `"YWJj"`)
	}
	if _, err := s.Encoded("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Encoded(absent) error = %v, want ErrNotFound", err)
	}
}
