package binder

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// API is the slice of the systemd manager connection this backend
// consumes. Keeping it narrow lets tests substitute a stub through
// NewDBusAPI.
type API interface {
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	GetUnitPropertyContext(ctx context.Context, unit, propertyName string) (*dbus.Property, error)
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)
	DisableUnitFilesContext(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)
	Close()
}

// The real connection must keep satisfying the narrowed interface.
var _ API = (*dbus.Conn)(nil)

// NewDBusAPI opens the service manager connection. Swappable for
// testing.
var NewDBusAPI = func(ctx context.Context) (API, error) {
	return dbus.NewSystemConnectionContext(ctx)
}
