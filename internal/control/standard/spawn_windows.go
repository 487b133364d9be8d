//go:build windows

package standard

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// detach configures cmd to run in its own process group with a hidden
// console of its own. The console must exist (not DETACHED_PROCESS) so
// Stop can later attach to it and deliver a control event.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_NO_WINDOW,
	}
}

// rootDir is the neutral working directory for spawned services.
func rootDir() string {
	if drive := os.Getenv("SystemDrive"); drive != "" {
		return drive + `\`
	}
	return `C:\`
}
