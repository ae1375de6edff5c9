// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Bakobiibizo/module-validator-rust/internal/issue"
	"github.com/Bakobiibizo/module-validator-rust/internal/regserver"
	"github.com/Bakobiibizo/module-validator-rust/internal/testutil"
	"github.com/Bakobiibizo/module-validator-rust/pkg/modwrap"
)

func TestModuleAddListShowRemove(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	src := ta.writeSource(t, "src/demo", map[string]string{
		"main.py":            "print('demo')\n",
		"lib/util.sh":        "echo util\n",
		"__pycache__/x.py":   "cached\n",
		"notes.unknownext":   "skip\n",
		"config/config.json": `{"a": 1}`,
	})

	if err := ta.run(t, "module", "add", "demo", src); err != nil {
		t.Fatalf("module add: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "Registered demo") {
		t.Errorf("add output = %q", ta.stdout.String())
	}
	installer := filepath.Join(ta.cfg.StorageDir, "demo", "setup_demo.sh")
	if _, err := os.Stat(installer); err != nil {
		t.Fatalf("installer not written: %v", err)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "module", "list"); err != nil {
		t.Fatalf("module list: %v", err)
	}
	if got := strings.TrimSpace(ta.stdout.String()); got != "demo" {
		t.Errorf("list = %q, want demo", got)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "module", "show", "demo"); err != nil {
		t.Fatalf("module show: %v", err)
	}
	out := ta.stdout.String()
	for _, want := range []string{"main.py", "lib/util.sh", "config/config.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "__pycache__") || strings.Contains(out, "notes.unknownext") {
		t.Errorf("show output lists filtered files:\n%s", out)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "module", "remove", "demo"); err != nil {
		t.Fatalf("module remove: %v", err)
	}
	if err := ta.run(t, "module", "remove", "demo"); err != nil {
		t.Fatalf("second module remove: %v", err)
	}
	ta.stdout.Reset()
	if err := ta.run(t, "module", "list"); err != nil {
		t.Fatalf("module list: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "No modules registered.") {
		t.Errorf("list after remove = %q", ta.stdout.String())
	}
}

func TestModuleInstall(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	src := ta.writeSource(t, "src/demo", map[string]string{
		"main.py":      "print('it works')\n",
		"data/a b.txt": "spaced name\n",
	})
	if err := ta.run(t, "module", "add", "demo", src); err != nil {
		t.Fatalf("module add: %v", err)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "module", "install", "demo"); err != nil {
		t.Fatalf("module install: %v", err)
	}
	for rel, want := range map[string]string{
		"main.py":      "print('it works')\n",
		"data/a b.txt": "spaced name\n",
	} {
		got, err := os.ReadFile(filepath.Join(ta.cfg.ModulesDir, "demo", filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read installed %s: %v", rel, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", rel, got, want)
		}
	}
	if !strings.Contains(ta.stdout.String(), "Created: modules/demo/") {
		t.Errorf("install output = %q", ta.stdout.String())
	}
}

func TestModuleErrorsAreActionable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		issue   issue.Id
		heading string
	}{
		{name: "unknown module", args: []string{"module", "show", "ghost"}, issue: issue.ModuleNotFoundId, heading: "Module not registered"},
		{name: "bad name", args: []string{"module", "add", "../escape"}, issue: issue.InvalidModuleNameId},
		{name: "reserved name", args: []string{"module", "remove", "public_key"}, issue: issue.InvalidModuleNameId},
		{name: "missing source", args: []string{"module", "add", "demo", "/does/not/exist"}, issue: issue.SourceNotFoundId},
		{name: "not installed", args: []string{"module", "hook", "demo", "load"}, issue: issue.HookFailedId},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ta := newTestApp(t, "")
			err := ta.run(t, tt.args...)
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v (%T), want *issue.ActionableError", err, err)
			}
			if ae.Issue != tt.issue {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.issue)
			}

			var buf strings.Builder
			ta.app.writeError(&buf, err)
			if !strings.Contains(buf.String(), "Error: failed to") {
				t.Errorf("rendered error = %q", buf.String())
			}
			if tt.heading != "" && !strings.Contains(buf.String(), tt.heading) {
				t.Errorf("rendered error lacks guidance %q:\n%s", tt.heading, buf.String())
			}
		})
	}
}

func TestModuleFetchFromServer(t *testing.T) {
	t.Parallel()

	// Publishing side.
	pub := newTestApp(t, "")
	src := pub.writeSource(t, "src/demo", map[string]string{"main.py": "print('remote')\n"})
	if err := pub.run(t, "module", "add", "demo", src); err != nil {
		t.Fatalf("module add: %v", err)
	}
	r, _, err := pub.app.newRegistrar(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	srv := regserver.New(regserver.Config{Addr: "127.0.0.1:0", Registry: r})
	if err := srv.Start(t.Context()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	testutil.DeferStop(t, srv)

	// Installing side.
	ta := newTestApp(t, "")
	if err := ta.run(t, "module", "fetch", "demo", "--from", srv.URL(), "--install"); err != nil {
		t.Fatalf("module fetch: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(ta.cfg.ModulesDir, "demo", "main.py"))
	if err != nil {
		t.Fatalf("fetched module not installed: %v", err)
	}
	if string(got) != "print('remote')\n" {
		t.Errorf("main.py = %q", got)
	}

	err = ta.run(t, "module", "fetch", "ghost", "--from", srv.URL())
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.FetchFailedId {
		t.Errorf("fetch of unknown module = %v, want FetchFailedId", err)
	}
}

func TestModuleHook(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	testutil.MustWriteFile(t, filepath.Join(ta.cfg.ModulesDir, "demo", "load_demo.sh"), "echo loaded demo\n")
	testutil.MustWriteFile(t, filepath.Join(ta.cfg.ModulesDir, "demo", "setup_demo.sh"), "echo setting up\n")

	tests := []struct {
		action string
		want   string
	}{
		{action: "load", want: "loaded demo"},
		{action: "unload", want: modwrap.MsgUnloaded},
		{action: "process", want: modwrap.MsgProcessFailed},
		{action: "install", want: modwrap.MsgSetupOK},
	}
	for _, tt := range tests {
		ta.stdout.Reset()
		if err := ta.run(t, "module", "hook", "demo", tt.action); err != nil {
			t.Fatalf("hook %s: %v", tt.action, err)
		}
		if !strings.Contains(ta.stdout.String(), tt.want) {
			t.Errorf("hook %s output = %q, want %q", tt.action, ta.stdout.String(), tt.want)
		}
	}

	if err := ta.run(t, "module", "hook", "demo", "explode"); err == nil {
		t.Error("unknown hook action succeeded")
	}
}
