// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// inotify exhaustion: the watch limit and both descriptor limits.
var fatalErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}
