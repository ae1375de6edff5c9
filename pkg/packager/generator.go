// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

// DefaultModulesDir is the directory, relative to where an installer runs,
// that receives module files.
const DefaultModulesDir = "modules"

// moduleDirVar is the shell variable holding the target module directory.
const moduleDirVar = "module_dir"

var (
	// ErrInvalidPath is returned for entry paths that are absolute or would
	// escape the module directory.
	ErrInvalidPath = errors.New("invalid entry path")
	// ErrInvalidContent is returned for entry content that is not base64.
	ErrInvalidContent = errors.New("invalid entry content")
)

type (
	// GenerateOption customizes GenerateInstaller.
	GenerateOption func(*generateOptions)

	generateOptions struct {
		modulesDir string
	}

	// EntryError reports the entry that failed validation.
	EntryError struct {
		Path string
		Err  error
	}
)

// WithModulesDir overrides DefaultModulesDir as the installer's target root.
func WithModulesDir(dir string) GenerateOption {
	return func(o *generateOptions) {
		if dir != "" {
			o.modulesDir = dir
		}
	}
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *EntryError) Unwrap() error { return e.Err }

// GenerateInstaller returns a bash script that recreates entries under
// <modules dir>/<name>/ when run from the directory holding the modules
// dir. Each written file is announced with a "Created: <path>" line.
// Paths are quoted in bash syntax, so names with control characters or
// invalid UTF-8 survive as $'...' strings.
func GenerateInstaller(name types.ModuleName, entries []FileEntry, opts ...GenerateOption) (string, error) {
	if err := name.Validate(); err != nil {
		return "", err
	}
	o := generateOptions{modulesDir: DefaultModulesDir}
	for _, opt := range opts {
		opt(&o)
	}

	moduleDir, err := quote(path.Join(filepathToSlash(o.modulesDir), name.String()))
	if err != nil {
		return "", fmt.Errorf("quote module directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Generated module installer. Run from the directory that holds the modules root.\n")
	b.WriteString("set -e\n\n")
	fmt.Fprintf(&b, "%s=%s\n", moduleDirVar, moduleDir)
	fmt.Fprintf(&b, "mkdir -p \"$%s\"\n", moduleDirVar)

	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return "", err
		}
		qPath, err := quote(e.Path)
		if err != nil {
			return "", &EntryError{Path: e.Path, Err: fmt.Errorf("%w: %w", ErrInvalidPath, err)}
		}
		qContent, err := quote(e.Content)
		if err != nil {
			return "", &EntryError{Path: e.Path, Err: fmt.Errorf("%w: %w", ErrInvalidContent, err)}
		}

		b.WriteByte('\n')
		if dir := path.Dir(e.Path); dir != "." {
			qDir, err := quote(dir)
			if err != nil {
				return "", &EntryError{Path: e.Path, Err: fmt.Errorf("%w: %w", ErrInvalidPath, err)}
			}
			fmt.Fprintf(&b, "mkdir -p \"$%s\"/%s\n", moduleDirVar, qDir)
		}
		fmt.Fprintf(&b, "printf '%%s' %s | base64 -d > \"$%s\"/%s\n", qContent, moduleDirVar, qPath)
		fmt.Fprintf(&b, "echo \"Created: $%s/\"%s\n", moduleDirVar, qPath)
	}

	script := b.String()
	if _, err := parseScript(script); err != nil {
		return "", fmt.Errorf("generated installer does not parse: %w", err)
	}
	return script, nil
}

// ParseInstaller recovers the file entries embedded in a script produced by
// GenerateInstaller, in script order.
func ParseInstaller(script string) ([]FileEntry, error) {
	file, err := parseScript(script)
	if err != nil {
		return nil, fmt.Errorf("parse installer: %w", err)
	}

	cfg := &expand.Config{Env: expand.ListEnviron(moduleDirVar + "=")}
	var entries []FileEntry
	for _, stmt := range file.Stmts {
		pipe, ok := stmt.Cmd.(*syntax.BinaryCmd)
		if !ok || pipe.Op != syntax.Pipe {
			continue
		}
		printf, ok := pipe.X.Cmd.(*syntax.CallExpr)
		if !ok || len(printf.Args) != 3 || printf.Args[0].Lit() != "printf" {
			continue
		}
		decode, ok := pipe.Y.Cmd.(*syntax.CallExpr)
		if !ok || len(decode.Args) == 0 || decode.Args[0].Lit() != "base64" {
			continue
		}
		if len(pipe.Y.Redirs) != 1 || pipe.Y.Redirs[0].Op != syntax.RdrOut {
			continue
		}

		content, err := expand.Literal(cfg, printf.Args[2])
		if err != nil {
			return nil, fmt.Errorf("expand content: %w", err)
		}
		target, err := expand.Literal(cfg, pipe.Y.Redirs[0].Word)
		if err != nil {
			return nil, fmt.Errorf("expand target: %w", err)
		}
		entries = append(entries, FileEntry{Path: strings.TrimPrefix(target, "/"), Content: content})
	}
	return entries, nil
}

func validateEntry(e FileEntry) error {
	p := e.Path
	if p == "" || path.IsAbs(p) || strings.HasPrefix(p, `\`) {
		return &EntryError{Path: p, Err: ErrInvalidPath}
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return &EntryError{Path: p, Err: ErrInvalidPath}
		}
	}
	if path.Clean(p) == "." {
		return &EntryError{Path: p, Err: ErrInvalidPath}
	}
	if _, err := Decode(e.Content); err != nil {
		return &EntryError{Path: p, Err: fmt.Errorf("%w: %w", ErrInvalidContent, err)}
	}
	return nil
}

// installerLang is the dialect installers are quoted and parsed in.
const installerLang = syntax.LangBash

func quote(s string) (string, error) {
	return syntax.Quote(s, installerLang)
}

func parseScript(script string) (*syntax.File, error) {
	return syntax.NewParser(syntax.Variant(installerLang)).Parse(strings.NewReader(script), "")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
