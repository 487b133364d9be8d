//go:build !windows

package standard

import (
	"os/exec"
	"syscall"
)

// detach configures cmd to run in its own session so it survives this
// process and is not bound to its controlling terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// rootDir is the neutral working directory for spawned services.
func rootDir() string {
	return "/"
}
