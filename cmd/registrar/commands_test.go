// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Bakobiibizo/module-validator-rust/internal/config"
	"github.com/Bakobiibizo/module-validator-rust/internal/issue"
	"github.com/Bakobiibizo/module-validator-rust/internal/shellbuiltin"
	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registrar"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registry"
	"github.com/Bakobiibizo/module-validator-rust/pkg/subnet"
)

func TestKeysInitAndShow(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	if err := ta.run(t, "keys", "init"); err != nil {
		t.Fatalf("keys init: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "Created key pair") {
		t.Errorf("keys init output = %q", ta.stdout.String())
	}

	ta.stdout.Reset()
	if err := ta.run(t, "keys", "init"); err != nil {
		t.Fatalf("second keys init: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "already present") {
		t.Errorf("second keys init output = %q", ta.stdout.String())
	}

	kp, err := keys.Load(ta.cfg.KeyDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ta.stdout.Reset()
	if err := ta.run(t, "keys", "show"); err != nil {
		t.Fatalf("keys show: %v", err)
	}
	out := ta.stdout.String()
	if !strings.Contains(out, kp.Address()) || !strings.Contains(out, "ssh-ed25519 ") {
		t.Errorf("keys show output = %q", out)
	}
}

func TestKeysShowWithoutKeys(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	err := ta.run(t, "keys", "show")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.KeyMaterialFailedId {
		t.Fatalf("keys show = %v, want KeyMaterialFailedId", err)
	}
}

func TestConfigShowFormats(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	if err := ta.run(t, "config", "show", "--format", "json"); err != nil {
		t.Fatalf("config show: %v", err)
	}
	var got config.Config
	if err := json.Unmarshal(ta.stdout.Bytes(), &got); err != nil {
		t.Fatalf("config show json: %v\n%s", err, ta.stdout.String())
	}
	if got.StorageDir != ta.cfg.StorageDir {
		t.Errorf("StorageDir = %q, want %q", got.StorageDir, ta.cfg.StorageDir)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "config", "show"); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(ta.stdout.String(), "hook_runtime: \"virtual\"") {
		t.Errorf("config show cue output = %q", ta.stdout.String())
	}

	if err := ta.run(t, "config", "show", "--format", "xml"); err == nil {
		t.Error("config show --format xml succeeded")
	}
}

func TestConfigInitAndPath(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	path := filepath.Join(ta.root, "etc", "config.cue")
	if err := ta.run(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := (config.Loader{}).Load(t.Context(), config.LoadOptions{ConfigFilePath: path}); err != nil {
		t.Errorf("written config does not load: %v", err)
	}

	ta.stdout.Reset()
	if err := ta.run(t, "--config", path, "config", "path"); err != nil {
		t.Fatalf("config path: %v", err)
	}
	if got := strings.TrimSpace(ta.stdout.String()); got != path {
		t.Errorf("config path = %q, want %q", got, path)
	}
}

func TestVoteOnce(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	kp, err := keys.Generate(ta.cfg.KeyDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref := config.DefaultReferenceValidator
	ta.cfg.Subnet.Netuids = []int{10, 11}

	var (
		mu    sync.Mutex
		voted subnet.VoteParams
	)
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var result any
		switch req.Method {
		case subnet.MethodQueryAddresses:
			result = map[string]string{"0": "10.0.0.1:8000", "3": "10.0.0.3:8000"}
		case subnet.MethodQueryKeys:
			var args []int
			_ = json.Unmarshal(req.Params, &args)
			if args[0] == 11 {
				result = map[string]string{"0": ref}
			} else {
				result = map[string]string{"0": ref, "3": kp.Address()}
			}
		case subnet.MethodQueryWeights:
			result = map[string]map[string]int{"0": {"3": 12, "4": 7}}
		case subnet.MethodVote:
			mu.Lock()
			_ = json.Unmarshal(req.Params, &voted)
			mu.Unlock()
			result = subnet.Receipt{Success: true, Extrinsic: "0xabc"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(node.Close)
	ta.cfg.Subnet.NodeURL = node.URL

	if err := ta.run(t, "vote", "--once"); err != nil {
		t.Fatalf("vote --once: %v", err)
	}
	out := ta.stdout.String()
	for _, want := range []string{"subnet 10: 1 weight(s) 0xabc", "subnet 11: " + subnet.ErrNotRegistered.Error(), "voted on 1 of 2 subnet(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("vote output missing %q:\n%s", want, out)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if voted.Netuid != 10 || len(voted.UIDs) != 1 || voted.UIDs[0] != 4 || voted.Weights[0] != 7 {
		t.Errorf("vote params = %+v, want uid 4 weight 7 on subnet 10", voted.VoteBody)
	}
	if voted.Address != kp.Address() {
		t.Errorf("vote address = %q, want %q", voted.Address, kp.Address())
	}
}

func TestVoteRequiresReferenceOnHomeSubnet(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	kp, err := keys.Generate(ta.cfg.KeyDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ta.cfg.Subnet.Netuids = []int{10}

	var (
		mu    sync.Mutex
		votes int
	)
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var result any
		switch req.Method {
		case subnet.MethodQueryAddresses:
			result = map[string]string{"0": "10.0.0.1:8000"}
		case subnet.MethodQueryKeys:
			result = map[string]string{"0": kp.Address()}
		case subnet.MethodQueryWeights:
			result = map[string]map[string]int{}
		case subnet.MethodVote:
			mu.Lock()
			votes++
			mu.Unlock()
			result = subnet.Receipt{Success: true}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(node.Close)
	ta.cfg.Subnet.NodeURL = node.URL

	err = ta.run(t, "vote", "--once")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.VoteFailedId {
		t.Fatalf("vote = %v, want VoteFailedId", err)
	}
	if !errors.Is(err, subnet.ErrReferenceMissing) {
		t.Errorf("vote = %v, want ErrReferenceMissing", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if votes != 0 {
		t.Errorf("%d vote(s) submitted without a reference validator", votes)
	}
}

func TestVoteUnreachableNode(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t, "")
	if _, err := keys.Generate(ta.cfg.KeyDir, nil); err != nil {
		t.Fatal(err)
	}
	node := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(node.Close)
	ta.cfg.Subnet.NodeURL = node.URL

	err := ta.run(t, "vote", "--once")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.VoteFailedId {
		t.Fatalf("vote = %v, want VoteFailedId", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{name: "not found", err: fmt.Errorf("%w: demo", registry.ErrNotFound), want: issue.ModuleNotFoundId},
		{name: "corrupt", err: registry.ErrCorrupt, want: issue.RegistryLoadFailedId},
		{name: "passphrase", err: keys.ErrPassphraseRequired, want: issue.KeyMaterialFailedId},
		{name: "fetch status", err: &registrar.StatusError{URL: "http://x/modules/demo", StatusCode: 500}, want: issue.FetchFailedId},
		{name: "installer exit", err: &shellbuiltin.ExitError{Status: 2}, want: issue.InstallerFailedId},
		{name: "unclassified", err: errors.New("boom"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := classify("do thing", "demo", tt.err)
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("classify() = %T, want *issue.ActionableError", err)
			}
			if ae.Issue != tt.want {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error does not wrap the cause")
			}
		})
	}

	if classify("op", "res", nil) != nil {
		t.Error("classify(nil) != nil")
	}
	already := issue.NewErrorContext().WithOperation("x").BuildError()
	if classify("op", "res", already) != already {
		t.Error("classify re-wrapped an actionable error")
	}
}

func TestWithExitStatus(t *testing.T) {
	t.Parallel()

	err := withExitStatus(classify("install module", "demo", &shellbuiltin.ExitError{Status: 3}))
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("withExitStatus() = %v, want ExitError code 3", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.InstallerFailedId {
		t.Errorf("exit error lost its guidance: %v", err)
	}

	plain := errors.New("boom")
	if withExitStatus(plain) != plain {
		t.Error("withExitStatus wrapped an error without a script status")
	}
	if got := (&ExitError{Code: 2}).Error(); got != "exit status 2" {
		t.Errorf("ExitError without cause = %q", got)
	}
}
