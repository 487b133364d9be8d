// Package binder implements bound-service control: the service is a
// unit managed by the init system, observed and driven over its
// manager connection rather than through a raw process.
package binder

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phoenix741/svcctl/internal/control"
)

const opTimeout = 15 * time.Second

func init() {
	control.Register("binder", New)
}

var _ control.ServiceControl = (*Control)(nil)

// Control is the bound-service backend. Status, Stop and Enabled are
// always supported; Start is present only when unit starting is
// permitted in this deployment.
type Control struct {
	*control.Base
	allowStart bool
}

// New creates a bound-service backend instance.
func New(name, serviceID string, opts control.Options, logger *zap.Logger) (control.ServiceControl, error) {
	return &Control{
		Base:       control.NewBase(name, serviceID, logger),
		allowStart: opts.AllowUnitStart,
	}, nil
}

// unitName resolves the service id to its unit descriptor. The raw id
// is used rather than the display name so dotted unit ids like
// foo.socket keep their suffix; only the path prefix is stripped.
func (c *Control) unitName() string {
	name := c.ServiceID()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// SupportFlags implements control.ServiceControl.
func (c *Control) SupportFlags() control.Capability {
	flags := control.SupportsStatus | control.SupportsStop | control.SupportsEnabled
	if c.allowStart {
		flags |= control.SupportsStart
	}
	return flags
}

// Blocking implements control.ServiceControl. Start and Stop wait on
// the manager's job result, so a successful return implies the target
// state was reached.
func (c *Control) Blocking() control.BlockMode {
	return control.Blocking
}

// bind opens the manager connection. Every operation binds, works and
// unbinds; a connection is never cached across calls.
func (c *Control) bind(ctx context.Context) (API, error) {
	conn, err := NewDBusAPI(ctx)
	if err != nil {
		c.Logger().Error("Failed to bind to service manager", zap.Error(err))
		return nil, err
	}
	return conn, nil
}

// unbind releases a bound connection. Discarding a live connection
// without closing it would leak its bus registration.
func (c *Control) unbind(conn API) {
	conn.Close()
}

// ServiceExists reports whether the unit is known to the manager. A
// pure metadata lookup with no side effects.
func (c *Control) ServiceExists() bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		c.Errorf("failed to bind to service manager: %v", err)
		return false
	}
	defer c.unbind(conn)

	units, err := conn.ListUnitsByNamesContext(ctx, []string{c.unitName()})
	if err != nil {
		c.Errorf("failed to query unit %s: %v", c.unitName(), err)
		return false
	}
	for _, unit := range units {
		if unit.Name == c.unitName() {
			return unit.LoadState != "not-found"
		}
	}
	return false
}

// IsEnabled reads the unit file enablement state from manager
// metadata.
func (c *Control) IsEnabled() bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		c.Errorf("failed to bind to service manager: %v", err)
		return false
	}
	defer c.unbind(conn)

	prop, err := conn.GetUnitPropertyContext(ctx, c.unitName(), "UnitFileState")
	if err != nil {
		c.Errorf("failed to read enablement of unit %s: %v", c.unitName(), err)
		return false
	}
	state, _ := prop.Value.Value().(string)
	switch state {
	case "enabled", "enabled-runtime", "linked", "linked-runtime", "static":
		return true
	default:
		return false
	}
}

// SetEnabled toggles the unit's enablement. Permission denial is
// recorded as an operation failure, never a crash.
func (c *Control) SetEnabled(enabled bool) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		c.Errorf("failed to bind to service manager: %v", err)
		return false
	}
	defer c.unbind(conn)

	if enabled {
		_, _, err = conn.EnableUnitFilesContext(ctx, []string{c.unitName()}, false, true)
	} else {
		_, err = conn.DisableUnitFilesContext(ctx, []string{c.unitName()}, false)
	}
	if err != nil {
		c.Errorf("failed to set unit %s enabled=%t: %v", c.unitName(), enabled, err)
		return false
	}
	c.Logger().Info("Changed unit enablement",
		zap.String("unit", c.unitName()),
		zap.Bool("enabled", enabled))
	return true
}

// Status maps the unit's active state onto the shared status model,
// recomputed from the manager on every call.
func (c *Control) Status() control.Status {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		c.Errorf("failed to bind to service manager: %v", err)
		return control.StatusUnknown
	}
	defer c.unbind(conn)

	units, err := conn.ListUnitsByNamesContext(ctx, []string{c.unitName()})
	if err != nil {
		c.Errorf("failed to query unit %s: %v", c.unitName(), err)
		return control.StatusUnknown
	}
	for _, unit := range units {
		if unit.Name != c.unitName() {
			continue
		}
		switch unit.ActiveState {
		case "active", "reloading", "activating":
			return control.StatusRunning
		case "inactive", "deactivating", "failed":
			return control.StatusStopped
		default:
			return control.StatusUnknown
		}
	}
	return control.StatusStopped
}

// Start asks the manager to start the unit and waits for the job
// result. Starting an already running unit succeeds immediately.
func (c *Control) Start() bool {
	if !c.allowStart {
		return c.Unsupported("start")
	}
	if c.Status() == control.StatusRunning {
		c.Logger().Debug("Unit already active", zap.String("unit", c.unitName()))
		return true
	}
	return c.runJob("start")
}

// Stop asks the manager to stop the unit and waits for the job result.
// Stopping an already stopped unit succeeds immediately.
func (c *Control) Stop() bool {
	if c.Status() == control.StatusStopped {
		c.Logger().Debug("Unit already inactive", zap.String("unit", c.unitName()))
		return true
	}
	return c.runJob("stop")
}

func (c *Control) runJob(op string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		c.Errorf("failed to bind to service manager: %v", err)
		return false
	}
	defer c.unbind(conn)

	resultCh := make(chan string, 1)
	switch op {
	case "start":
		_, err = conn.StartUnitContext(ctx, c.unitName(), "replace", resultCh)
	case "stop":
		_, err = conn.StopUnitContext(ctx, c.unitName(), "replace", resultCh)
	}
	if err != nil {
		c.Errorf("%s request for unit %s failed: %v", op, c.unitName(), err)
		return false
	}

	select {
	case result := <-resultCh:
		if result != "done" {
			c.Errorf("%s job for unit %s finished with result %q", op, c.unitName(), result)
			return false
		}
	case <-ctx.Done():
		c.Errorf("%s job for unit %s timed out", op, c.unitName())
		return false
	}

	c.Logger().Info("Unit job completed",
		zap.String("unit", c.unitName()),
		zap.String("op", op))
	return true
}

// CallGenericCommand supports "getPid" (the unit's main pid, -1 when
// unavailable) and "activeState" (the raw manager state string).
// Unknown kinds return nil.
func (c *Control) CallGenericCommand(kind string, args ...any) any {
	switch kind {
	case "getPid":
		return c.mainPID()
	case "activeState":
		return c.activeState()
	default:
		return nil
	}
}

func (c *Control) mainPID() int {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		return -1
	}
	defer c.unbind(conn)

	props, err := conn.GetUnitPropertiesContext(ctx, c.unitName())
	if err != nil {
		return -1
	}
	if pid, ok := props["MainPID"].(uint32); ok && pid > 0 {
		return int(pid)
	}
	return -1
}

func (c *Control) activeState() any {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := c.bind(ctx)
	if err != nil {
		return nil
	}
	defer c.unbind(conn)

	units, err := conn.ListUnitsByNamesContext(ctx, []string{c.unitName()})
	if err != nil {
		return nil
	}
	for _, unit := range units {
		if unit.Name == c.unitName() {
			return unit.ActiveState
		}
	}
	return nil
}
