//go:build unix

package sys

import (
	"errors"

	"golang.org/x/sys/unix"
)

func processAlive(pid int) bool {
	// Signal 0 only checks for existence and permission.
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
