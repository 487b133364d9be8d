//go:build windows

package standard

import (
	"time"

	"golang.org/x/sys/windows"

	"github.com/phoenix741/svcctl/internal/control"
)

const (
	stopAttempts = 10
	stopInterval = 500 * time.Millisecond
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procAllocConsole          = kernel32.NewProc("AllocConsole")
	procAttachConsole         = kernel32.NewProc("AttachConsole")
	procFreeConsole           = kernel32.NewProc("FreeConsole")
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")
)

// Blocking implements control.ServiceControl. The console control
// event may be acted on after Stop returns, and the bounded retry loop
// can also observe the stop happening, so neither contract can be
// promised.
func (c *Control) Blocking() control.BlockMode {
	return control.Undetermined
}

// terminate delivers CTRL_C to the target's console, polling the
// status between bounded attempts. A process has exactly one console,
// so this detaches from our own, attaches to the target's and must
// restore both the console attachment and the local control handler on
// every exit path.
func (c *Control) terminate(pid int) bool {
	hadConsole := freeConsole()
	defer func() {
		if hadConsole {
			procAllocConsole.Call()
		}
	}()

	if r, _, err := procAttachConsole.Call(uintptr(uint32(pid))); r == 0 {
		c.Errorf("failed to attach to service console: %v", err)
		return false
	}
	defer procFreeConsole.Call()

	// Ignore the control event locally while broadcasting it.
	if err := setLocalCtrlIgnored(true); err != nil {
		c.Errorf("failed to disable local console handler: %v", err)
		return false
	}
	defer setLocalCtrlIgnored(false)

	for i := 0; i < stopAttempts; i++ {
		if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, 0); err != nil {
			c.Errorf("failed to send stop signal: %v", err)
			continue
		}
		if c.Status() != control.StatusRunning {
			return true
		}
		time.Sleep(stopInterval)
	}

	c.Errorf("service did not stop after %d attempts", stopAttempts)
	return false
}

func freeConsole() bool {
	r, _, _ := procFreeConsole.Call()
	return r != 0
}

func setLocalCtrlIgnored(ignored bool) error {
	var add uintptr
	if ignored {
		add = 1
	}
	if r, _, err := procSetConsoleCtrlHandler.Call(0, add); r == 0 {
		return err
	}
	return nil
}
