// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestValuesOrderedAndComplete(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(VoteFailedId) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), VoteFailedId)
	}
	for i, is := range values {
		if want := Id(i + 1); is.Id() != want {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), want)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty Markdown", is.Id())
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if Get(0) != nil {
		t.Error("Get(0) should return nil")
	}
	is := Get(ModuleNotFoundId)
	if is == nil {
		t.Fatal("Get(ModuleNotFoundId) returned nil")
	}
	if !strings.Contains(string(is.MarkdownMsg()), "registrar module list") {
		t.Errorf("ModuleNotFound guidance missing list command:\n%s", is.MarkdownMsg())
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Get(KeyMaterialFailedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "Key material unavailable") {
		t.Errorf("Render() output missing heading:\n%s", out)
	}
}

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "list modules"}, "failed to list modules"},
		{"with resource", &ActionableError{Operation: "remove module", Resource: "demo"}, "failed to remove module: demo"},
		{"with cause", &ActionableError{Operation: "load keys", Resource: "keys", Cause: cause}, "failed to load keys: keys: permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	inner := errors.New("no such file")
	err := NewErrorContext().
		WithOperation("add module").
		WithResource("demo").
		WithSuggestion("Check the source path").
		WithSuggestion("Pass no source for an empty module").
		WithIssue(SourceNotFoundId).
		Wrap(wrapped{inner}).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "  • Check the source path") || !strings.Contains(plain, "  • Pass no source") {
		t.Errorf("Format(false) missing suggestions:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) should not include the chain:\n%s", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "1. walk: no such file") || !strings.Contains(verbose, "2. no such file") {
		t.Errorf("Format(true) chain incorrect:\n%s", verbose)
	}
	if err.Issue != SourceNotFoundId {
		t.Errorf("Issue = %d, want %d", err.Issue, SourceNotFoundId)
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the inner cause")
	}
}

func TestBuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want nil interface", err)
	}
	if WrapWithOperation(nil, "x") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}

type wrapped struct{ err error }

func (w wrapped) Error() string { return "walk: " + w.err.Error() }
func (w wrapped) Unwrap() error { return w.err }
