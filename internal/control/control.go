package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Status represents the run state of a controlled service
// All backends must map their native states to these constants
type Status string

const (
	// StatusRunning indicates a live service instance was detected
	StatusRunning Status = "Running"

	// StatusStopped indicates no service instance is running
	StatusStopped Status = "Stopped"

	// StatusUnknown indicates the state could not be determined; the
	// backend records a diagnostic retrievable via LastError
	StatusUnknown Status = "Unknown"
)

// BlockMode describes whether Start/Stop return only after the
// operation's effect is externally observable. It is fixed per backend
// and platform; callers use it to decide whether to poll Status after
// an operation.
type BlockMode string

const (
	// Blocking means a successful Start/Stop implies the target state
	// has been reached
	Blocking BlockMode = "blocking"

	// NonBlocking means Start/Stop only initiate the transition;
	// callers must poll Status for confirmation
	NonBlocking BlockMode = "non-blocking"

	// Undetermined means the backend cannot guarantee either contract
	Undetermined BlockMode = "undetermined"
)

// Capability is a bit set of the operations a backend supports.
// A backend must never claim a capability it cannot perform; callers
// are expected to consult SupportFlags before invoking Start, Stop or
// SetEnabled.
type Capability uint8

const (
	SupportsStatus Capability = 1 << iota
	SupportsStart
	SupportsStop
	SupportsEnabled
)

// Has reports whether every capability in flags is present in c.
func (c Capability) Has(flags Capability) bool {
	return c&flags == flags
}

// String returns a stable pipe-separated rendering for diagnostics.
func (c Capability) String() string {
	names := []struct {
		flag Capability
		name string
	}{
		{SupportsStatus, "status"},
		{SupportsStart, "start"},
		{SupportsStop, "stop"},
		{SupportsEnabled, "enabled"},
	}

	var parts []string
	for _, n := range names {
		if c.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ServiceControl is the shared contract implemented by every backend.
// All operations are synchronous from the caller's perspective. Failing
// operations return false (or StatusUnknown) and record a
// human-readable message retrievable via LastError; failure here is an
// expected outcome (already running, insufficient permission), not a
// programming error.
type ServiceControl interface {
	// Backend returns the stable backend identifier for diagnostics
	// and selection.
	Backend() string

	// ServiceID returns the opaque service identity the control
	// object was constructed for.
	ServiceID() string

	// SupportFlags reports the operations this backend can perform.
	// The set may depend on runtime configuration but never changes
	// for the lifetime of the control object.
	SupportFlags() Capability

	// ServiceExists reports whether the service id resolves to an
	// installed service on this system. It has no side effects.
	ServiceExists() bool

	// IsEnabled reports whether the service is permitted to run,
	// which is distinct from whether it is running. Backends without
	// the Enabled capability return a fixed default.
	IsEnabled() bool

	// Status determines the current run state. The state is always
	// recomputed from the authoritative mechanism, never cached.
	Status() Status

	Start() bool
	Stop() bool
	SetEnabled(enabled bool) bool

	// Blocking reports the Start/Stop completion contract of this
	// backend on this platform.
	Blocking() BlockMode

	// CallGenericCommand is the escape hatch for backend-specific
	// operations beyond the core contract. Unknown kinds return nil,
	// never an error.
	CallGenericCommand(kind string, args ...any) any

	// LastError returns the message recorded by the most recent
	// failing operation, or "" if none failed yet.
	LastError() string
}

// Base carries the state shared by all backends: the service identity,
// the logger and the error side channel. It also provides the
// documented fallbacks for operations a backend does not support, so
// that invoking a missing capability signals instead of silently
// no-opping. Backends embed *Base and override what they implement.
type Base struct {
	backend   string
	serviceID string
	logger    *zap.Logger

	mu      sync.Mutex
	lastErr string
}

// NewBase creates the shared backend state. A nil logger is replaced
// with a no-op logger.
func NewBase(backend, serviceID string, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		backend:   backend,
		serviceID: serviceID,
		logger:    logger.With(zap.String("backend", backend), zap.String("service", serviceID)),
	}
}

// Backend implements ServiceControl.
func (b *Base) Backend() string { return b.backend }

// ServiceID implements ServiceControl.
func (b *Base) ServiceID() string { return b.serviceID }

// Logger returns the backend logger, pre-tagged with backend and
// service fields.
func (b *Base) Logger() *zap.Logger { return b.logger }

// SetError records msg on the error side channel and logs it.
func (b *Base) SetError(msg string) {
	b.mu.Lock()
	b.lastErr = msg
	b.mu.Unlock()
	b.logger.Error(msg)
}

// Errorf formats and records an operation failure message.
func (b *Base) Errorf(format string, args ...any) {
	b.SetError(fmt.Sprintf(format, args...))
}

// LastError implements ServiceControl.
func (b *Base) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Unsupported records that op was invoked on a backend lacking the
// corresponding capability and returns false. It is the base fallback
// behind Start, Stop and SetEnabled.
func (b *Base) Unsupported(op string) bool {
	b.Errorf("operation %q is not supported by the %s backend", op, b.backend)
	return false
}

// IsEnabled is the base fallback: backends without the Enabled
// capability treat every service as permitted to run.
func (b *Base) IsEnabled() bool { return true }

// Start is the base fallback for backends without the Start capability.
func (b *Base) Start() bool { return b.Unsupported("start") }

// Stop is the base fallback for backends without the Stop capability.
func (b *Base) Stop() bool { return b.Unsupported("stop") }

// SetEnabled is the base fallback for backends without the Enabled
// capability.
func (b *Base) SetEnabled(bool) bool { return b.Unsupported("setEnabled") }

// CallGenericCommand is the base fallback: no generic commands.
func (b *Base) CallGenericCommand(string, ...any) any { return nil }

// ServiceName derives the canonical service name from the service id.
// See ServiceNameFromID.
func (b *Base) ServiceName() string {
	return ServiceNameFromID(b.serviceID)
}

// ServiceNameFromID derives the canonical service name from a service
// id or executable path: the last non-empty path segment with its
// trailing extension trimmed. The rule is shared between the control
// side, which sees the id as given, and a launched service process,
// which sees its own resolved argv[0]; both must land on the same name
// or they would watch different lock files. The segment rule is
// lenient and accepts ids that are not paths at all.
func ServiceNameFromID(id string) string {
	if info, err := os.Stat(id); err == nil && !info.IsDir() {
		return trimExt(filepath.Base(id))
	}

	segments := strings.Split(id, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return trimExt(segments[i])
		}
	}
	return id
}

func trimExt(name string) string {
	if ext := filepath.Ext(name); ext != "" && ext != name {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
