// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"context"
	"io"

	"github.com/Bakobiibizo/module-validator-rust/internal/shellbuiltin"
)

// RunInstaller executes an installer script in-process with dir as the
// working directory. Files land under <dir>/<modules dir>/<name>/. The
// script's "Created:" lines go to stdout.
func RunInstaller(ctx context.Context, script, dir string, stdout, stderr io.Writer) error {
	return shellbuiltin.Run(ctx, script, "installer", shellbuiltin.RunOptions{
		Dir:    dir,
		Stdout: stdout,
		Stderr: stderr,
	})
}
