//go:build !windows

package standard

import (
	"golang.org/x/sys/unix"

	"github.com/phoenix741/svcctl/internal/control"
)

// Blocking implements control.ServiceControl. Signal delivery does not
// wait for the target to exit, so callers poll Status for
// confirmation.
func (c *Control) Blocking() control.BlockMode {
	return control.NonBlocking
}

// terminate sends SIGTERM to the lock holder. Success means the kernel
// accepted delivery, not that the process has exited; that weaker
// guarantee is the declared non-blocking contract of this backend.
func (c *Control) terminate(pid int) bool {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		c.Errorf("failed to send stop signal to pid %d: %v", pid, err)
		return false
	}
	return true
}
