// SPDX-License-Identifier: MPL-2.0

package shellbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type mkdirCommand struct{}

func newMkdirCommand() *mkdirCommand { return &mkdirCommand{} }

// Name returns "mkdir".
func (c *mkdirCommand) Name() string { return "mkdir" }

// Run creates each directory operand. Supported flags: -p, -m MODE.
func (c *mkdirCommand) Run(ctx context.Context, args []string) error {
	hc := GetHandlerContext(ctx)

	parents := false
	mode := os.FileMode(0o755)
	var dirs []string

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--":
			dirs = append(dirs, rest[i+1:]...)
			i = len(rest)
		case arg == "-p" || arg == "--parents":
			parents = true
		case arg == "-m":
			if i+1 >= len(rest) {
				return fail(hc, c.Name(), errors.New("option requires an argument -- 'm'"))
			}
			i++
			m, err := strconv.ParseUint(rest[i], 8, 32)
			if err != nil {
				return fail(hc, c.Name(), fmt.Errorf("invalid mode %q", rest[i]))
			}
			mode = os.FileMode(m)
		case strings.HasPrefix(arg, "-") && arg != "-":
			return fail(hc, c.Name(), fmt.Errorf("unsupported option %q", arg))
		default:
			dirs = append(dirs, arg)
		}
	}

	if len(dirs) == 0 {
		return fail(hc, c.Name(), errors.New("missing operand"))
	}

	for _, dir := range dirs {
		path := dir
		if !filepath.IsAbs(path) {
			path = filepath.Join(hc.Dir, path)
		}
		var err error
		if parents {
			err = os.MkdirAll(path, mode)
		} else {
			err = os.Mkdir(path, mode)
		}
		if err != nil {
			return fail(hc, c.Name(), err)
		}
	}
	return nil
}
