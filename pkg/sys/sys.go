// Package sys provides system utilities with the same API across OSes.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsATTY determines whether the given file is a terminal.
func IsATTY(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ProcessAlive reports whether a process with the given pid exists. It
// returns true when this cannot be determined.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return true
	}
	return processAlive(pid)
}
