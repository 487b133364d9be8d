// Package standard implements process-based service control: a
// service is an executable launched as a detached process, detected
// and identified through a per-service status lock.
package standard

import (
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/phoenix741/svcctl/internal/control"
)

func init() {
	// The debug alias runs the same backend with the service process
	// attached to the controlling terminal instead of detached.
	control.Register("standard", New)
	control.Register("debug", New)
}

var _ control.ServiceControl = (*Control)(nil)

// Control is the standard backend. It supports Status and Stop
// unconditionally; Start is present only when process spawning is
// available in this deployment.
type Control struct {
	*control.Base
	debug    bool
	canSpawn bool
	lock     *StatusLock
}

// New creates a standard backend instance. The name selects normal
// ("standard") or debug ("debug") launch behavior.
func New(name, serviceID string, opts control.Options, logger *zap.Logger) (control.ServiceControl, error) {
	base := control.NewBase(name, serviceID, logger)
	lock, err := NewStatusLock(opts.RuntimeDir, base.ServiceName())
	if err != nil {
		return nil, err
	}
	base.Logger().Debug("Using lock file", zap.String("path", lock.Path()))
	return &Control{
		Base:     base,
		debug:    name == "debug",
		canSpawn: opts.AllowSpawn,
		lock:     lock,
	}, nil
}

// SupportFlags implements control.ServiceControl.
func (c *Control) SupportFlags() control.Capability {
	flags := control.SupportsStatus | control.SupportsStop
	if c.canSpawn {
		flags |= control.SupportsStart
	}
	return flags
}

// ServiceExists reports whether the service id resolves to an
// executable on PATH (or directly as a path).
func (c *Control) ServiceExists() bool {
	_, err := exec.LookPath(c.ServiceID())
	return err == nil
}

// Status probes the status lock. A free lock means no instance is
// running; a held lock means one is; anything else is an
// infrastructure failure reported as Unknown.
func (c *Control) Status() control.Status {
	ok, err := c.lock.TryAcquire()
	if err != nil {
		c.Errorf("failed to determine status: %v", err)
		return control.StatusUnknown
	}
	if ok {
		if err := c.lock.Release(); err != nil {
			c.Logger().Warn("Failed to release probe lock", zap.Error(err))
		}
		return control.StatusStopped
	}
	return control.StatusRunning
}

// Start launches the service executable. Starting an already running
// service succeeds without spawning a second process.
func (c *Control) Start() bool {
	if !c.canSpawn {
		return c.Unsupported("start")
	}

	if c.Status() == control.StatusRunning {
		c.Logger().Debug("Service already running", zap.Int("pid", c.getPid()))
		return true
	}

	bin, err := exec.LookPath(c.ServiceID())
	if err != nil {
		c.Errorf("unable to find executable for service with id %q", c.ServiceID())
		return false
	}

	// The spawned process self-identifies which backend launched it
	// and must not inherit an unrelated working directory.
	cmd := exec.Command(bin, "--backend", c.Backend())
	cmd.Dir = rootDir()

	if c.debug {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		c.Logger().Debug("Launching service subprocess",
			zap.String("path", bin),
			zap.Strings("args", cmd.Args[1:]))
		if err := cmd.Start(); err != nil {
			c.Errorf("failed to start service process: %v", err)
			return false
		}
		// Not waited on synchronously; reap in the background so the
		// child cleans itself up whenever it exits.
		go func() { _ = cmd.Wait() }()
	} else {
		// Stdin/out/err left nil: os/exec connects them to the null
		// device. The child is fully detached and survives this
		// process.
		detach(cmd)
		c.Logger().Debug("Launching service detached",
			zap.String("path", bin),
			zap.Strings("args", cmd.Args[1:]))
		if err := cmd.Start(); err != nil {
			c.Errorf("failed to start service process: %v", err)
			return false
		}
		if err := cmd.Process.Release(); err != nil {
			c.Logger().Warn("Failed to release process handle", zap.Error(err))
		}
	}

	c.Logger().Info("Started service process",
		zap.Int("pid", cmd.Process.Pid),
		zap.Bool("debug", c.debug))
	return true
}

// Stop terminates the running service instance using the platform's
// termination protocol. Stopping an already stopped service succeeds
// without any delivery attempt.
func (c *Control) Stop() bool {
	if c.Status() == control.StatusStopped {
		c.Logger().Debug("Service already stopped")
		return true
	}

	pid, err := c.lock.HolderPID()
	if err != nil {
		c.Errorf("failed to get pid of running service: %v", err)
		return false
	}
	return c.terminate(pid)
}

// CallGenericCommand supports "getPid", returning the running
// instance's pid or -1. Unknown kinds return nil.
func (c *Control) CallGenericCommand(kind string, args ...any) any {
	switch kind {
	case "getPid":
		return c.getPid()
	default:
		return nil
	}
}

func (c *Control) getPid() int {
	pid, err := c.lock.HolderPID()
	if err != nil {
		return -1
	}
	return pid
}
