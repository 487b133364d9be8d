// Package system implements service control through the platform's
// native service manager (systemd, launchd, Windows SCM), delegating
// to the manager's own tooling rather than driving processes directly.
package system

import (
	"errors"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"github.com/phoenix741/svcctl/internal/control"
)

func init() {
	control.Register("system", New)
}

var _ control.ServiceControl = (*Control)(nil)

// Control is the native service manager backend.
type Control struct {
	*control.Base
}

// New creates a system backend instance.
func New(name, serviceID string, opts control.Options, logger *zap.Logger) (control.ServiceControl, error) {
	return &Control{Base: control.NewBase(name, serviceID, logger)}, nil
}

// noopProgram satisfies service.Interface for control-only use; this
// backend never runs as the service itself.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }

func (c *Control) svc() (service.Service, error) {
	return service.New(noopProgram{}, &service.Config{Name: c.ServiceName()})
}

// SupportFlags implements control.ServiceControl. The native manager
// can always be asked to start and stop; enablement is not exposed
// uniformly across managers, so the Enabled capability is absent and
// IsEnabled inherits the base default.
func (c *Control) SupportFlags() control.Capability {
	return control.SupportsStatus | control.SupportsStart | control.SupportsStop
}

// Blocking implements control.ServiceControl. The manager tools this
// delegates to differ in whether they wait for the transition.
func (c *Control) Blocking() control.BlockMode {
	return control.Undetermined
}

// ServiceExists reports whether the service is registered with the
// native manager.
func (c *Control) ServiceExists() bool {
	s, err := c.svc()
	if err != nil {
		c.Errorf("failed to open service manager handle: %v", err)
		return false
	}
	_, err = s.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return false
	}
	if err != nil {
		c.Errorf("failed to query service manager: %v", err)
		return false
	}
	return true
}

// Status queries the native manager. A service that is not installed
// reports Stopped; only infrastructure failures report Unknown.
func (c *Control) Status() control.Status {
	s, err := c.svc()
	if err != nil {
		c.Errorf("failed to open service manager handle: %v", err)
		return control.StatusUnknown
	}

	status, err := s.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return control.StatusStopped
	}
	if err != nil {
		c.Errorf("failed to query service status: %v", err)
		return control.StatusUnknown
	}

	switch status {
	case service.StatusRunning:
		return control.StatusRunning
	case service.StatusStopped:
		return control.StatusStopped
	default:
		return control.StatusUnknown
	}
}

// Start asks the native manager to start the service. Starting an
// already running service succeeds immediately.
func (c *Control) Start() bool {
	if c.Status() == control.StatusRunning {
		c.Logger().Debug("Service already running")
		return true
	}

	s, err := c.svc()
	if err != nil {
		c.Errorf("failed to open service manager handle: %v", err)
		return false
	}
	if err := s.Start(); err != nil {
		c.Errorf("failed to start service: %v", err)
		return false
	}
	c.Logger().Info("Requested service start")
	return true
}

// Stop asks the native manager to stop the service. Stopping an
// already stopped service succeeds immediately.
func (c *Control) Stop() bool {
	if c.Status() == control.StatusStopped {
		c.Logger().Debug("Service already stopped")
		return true
	}

	s, err := c.svc()
	if err != nil {
		c.Errorf("failed to open service manager handle: %v", err)
		return false
	}
	if err := s.Stop(); err != nil {
		c.Errorf("failed to stop service: %v", err)
		return false
	}
	c.Logger().Info("Requested service stop")
	return true
}

// CallGenericCommand supports "platform", returning the native
// manager identifier. Unknown kinds return nil.
func (c *Control) CallGenericCommand(kind string, args ...any) any {
	switch kind {
	case "platform":
		s, err := c.svc()
		if err != nil {
			return nil
		}
		return s.Platform()
	default:
		return nil
	}
}
