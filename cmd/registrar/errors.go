// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Bakobiibizo/module-validator-rust/internal/issue"
	"github.com/Bakobiibizo/module-validator-rust/internal/shellbuiltin"
	"github.com/Bakobiibizo/module-validator-rust/pkg/keys"
	"github.com/Bakobiibizo/module-validator-rust/pkg/modwrap"
	"github.com/Bakobiibizo/module-validator-rust/pkg/packager"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registrar"
	"github.com/Bakobiibizo/module-validator-rust/pkg/registry"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// ExitError carries the process exit code for a failed command. Execute
// exits with Code; Err is what gets rendered.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the message of Err, or the bare status.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + e.Code.String()
	}
	return e.Err.Error()
}

// Unwrap returns Err.
func (e *ExitError) Unwrap() error { return e.Err }

// withExitStatus gives installer failures the script's own exit status.
func withExitStatus(err error) error {
	var status *shellbuiltin.ExitError
	if err == nil || !errors.As(err, &status) {
		return err
	}
	return &ExitError{Code: types.ExitCodeFromStatus(status.Status), Err: err}
}

// classify wraps err in an ActionableError carrying the catalog issue and
// suggestions that match its cause. Errors that are already actionable pass
// through unchanged.
func classify(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(operation).WithResource(resource)

	var (
		status  *registrar.StatusError
		exitErr *shellbuiltin.ExitError
		entry   *packager.EntryError
	)
	switch {
	case errors.Is(err, types.ErrInvalidModuleName):
		ec.WithIssue(issue.InvalidModuleNameId).
			WithSuggestion("Use a single path segment that does not start with a dash")
	case errors.Is(err, registry.ErrNotFound):
		ec.WithIssue(issue.ModuleNotFoundId).
			WithSuggestion("Run 'registrar module list' to see registered modules")
	case errors.Is(err, registry.ErrCorrupt):
		ec.WithIssue(issue.RegistryLoadFailedId)
	case errors.Is(err, registrar.ErrSourceNotFound):
		ec.WithIssue(issue.SourceNotFoundId).
			WithSuggestion("Pass the module source directory explicitly")
	case errors.Is(err, keys.ErrPassphraseRequired):
		ec.WithIssue(issue.KeyMaterialFailedId).
			WithSuggestion("Set REGISTRAR_KEY_PASSPHRASE to the key passphrase")
	case errors.Is(err, keys.ErrNoKeys):
		ec.WithIssue(issue.KeyMaterialFailedId).
			WithSuggestion("Run 'registrar keys init' first")
	case errors.Is(err, keys.ErrUnsupportedKey):
		ec.WithIssue(issue.KeyMaterialFailedId)
	case errors.As(err, &status):
		ec.WithIssue(issue.FetchFailedId)
		if status.StatusCode == 404 {
			ec.WithSuggestion("Check the module name against the remote 'GET /modules' listing")
		}
	case errors.As(err, &exitErr), errors.As(err, &entry):
		ec.WithIssue(issue.InstallerFailedId)
	case errors.Is(err, modwrap.ErrModuleNotInstalled):
		ec.WithIssue(issue.HookFailedId).
			WithSuggestion(fmt.Sprintf("Run 'registrar module install %s' first", resource))
	}
	return ec.Wrap(err).BuildError()
}

// writeError renders err with its suggestions and, for catalogued issues,
// the long-form guidance.
func (a *App) writeError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		err = exitErr.Err
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(a.verbose))
	if ae.Issue == 0 {
		return
	}
	if is := issue.Get(ae.Issue); is != nil {
		if out, rerr := is.Render(a.markdownStyle); rerr == nil {
			fmt.Fprintln(w, strings.TrimRight(out, "\n"))
		}
	}
}
