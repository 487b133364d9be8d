package control

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Options carries the runtime configuration a backend may depend on.
// Capability flags derived from it are resolved once at construction
// and never change afterwards.
type Options struct {
	// RuntimeDir is the directory holding per-service lock files for
	// backends that use a status lock.
	RuntimeDir string

	// AllowSpawn reports whether spawning service processes is
	// available in this deployment. When false, process-launching
	// backends drop their Start capability.
	AllowSpawn bool

	// AllowUnitStart reports whether starting units through the
	// service manager connection is permitted. When false, the bound
	// service backend drops its Start capability.
	AllowUnitStart bool
}

// Factory constructs a backend for one service id. The registered name
// is passed through so a factory serving several aliases can vary its
// behavior by name.
type Factory func(name, serviceID string, opts Options, logger *zap.Logger) (ServiceControl, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend factory available under name. Backends call
// it from their package init; registering the same name twice is a
// programming error and panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if name == "" {
		panic("control: backend name must not be empty")
	}
	if factory == nil {
		panic("control: nil factory for backend " + name)
	}
	if _, dup := registry[name]; dup {
		panic("control: backend registered twice: " + name)
	}
	registry[name] = factory
}

// Backends returns the sorted names of all registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the named backend for serviceID.
func New(name, serviceID string, opts Options, logger *zap.Logger) (ServiceControl, error) {
	if serviceID == "" {
		return nil, fmt.Errorf("service id is required")
	}

	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (registered: %v)", name, Backends())
	}

	ctl, err := factory(name, serviceID, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", name, err)
	}
	return ctl, nil
}
