// SPDX-License-Identifier: MPL-2.0

package shellbuiltin

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type base64Command struct{}

func newBase64Command() *base64Command { return &base64Command{} }

// Name returns "base64".
func (c *base64Command) Name() string { return "base64" }

// Run encodes or (-d) decodes stdin or a single file operand to stdout.
// Decoding ignores whitespace, matching coreutils.
func (c *base64Command) Run(ctx context.Context, args []string) error {
	hc := GetHandlerContext(ctx)

	decode := false
	var file string
	for _, arg := range args[1:] {
		switch {
		case arg == "-d" || arg == "--decode" || arg == "-D":
			decode = true
		case arg == "-":
			file = ""
		case strings.HasPrefix(arg, "-"):
			return fail(hc, c.Name(), fmt.Errorf("unsupported option %q", arg))
		default:
			if file != "" {
				return fail(hc, c.Name(), fmt.Errorf("extra operand %q", arg))
			}
			file = arg
		}
	}

	var in io.Reader = hc.Stdin
	if file != "" {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(hc.Dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return fail(hc, c.Name(), err)
		}
		defer f.Close()
		in = f
	}
	if in == nil {
		return fail(hc, c.Name(), errors.New("no input"))
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fail(hc, c.Name(), err)
	}

	if decode {
		cleaned := strings.Join(strings.Fields(string(data)), "")
		out, decErr := base64.StdEncoding.DecodeString(cleaned)
		if decErr != nil {
			return fail(hc, c.Name(), fmt.Errorf("invalid input: %w", decErr))
		}
		_, err = io.Copy(hc.Stdout, bytes.NewReader(out))
	} else {
		_, err = fmt.Fprintln(hc.Stdout, base64.StdEncoding.EncodeToString(data))
	}
	if err != nil {
		return fail(hc, c.Name(), err)
	}
	return nil
}
