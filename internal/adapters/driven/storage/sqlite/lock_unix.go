//go:build unix

package sqlite

import (
	"errors"
	"syscall"
)

// isProcessRunning sends signal 0 to pid. EPERM means the process exists
// but belongs to someone else.
func isProcessRunning(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
