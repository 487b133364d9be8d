package standard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/v3/process"
)

// Record is the status metadata a running service instance publishes
// while it holds its lock: enough to attribute the lock to a live
// process from any other process on the host.
type Record struct {
	PID  int      `json:"pid"`
	Host string   `json:"host"`
	App  string   `json:"app"`
	Args []string `json:"args,omitempty"`
}

// StatusLock is the per-service mutual exclusion primitive used both
// to detect a running instance and to identify it. It is an advisory
// file lock the OS releases only at holder process exit, so a crashed
// holder never leaves a lock behind and a live holder can never be
// mistaken for a stale one. There is deliberately no staleness
// reclamation: the OS itself is the liveness authority.
//
// Control-side callers only probe with TryAcquire/Release; the service
// process itself calls Hold once at startup and keeps the lock for its
// lifetime.
//
// The record lives in a sidecar file next to the lock file, never
// inside it. Windows implements the lock as a mandatory byte-range
// lock that denies reads and writes through other handles, so a
// record inside the locked file would be unreadable exactly while a
// holder is alive.
type StatusLock struct {
	path       string
	recordPath string
	fl         *flock.Flock
	held       bool
}

// NewStatusLock creates the lock handle for a service name inside
// runtimeDir. The directory is created if missing.
func NewStatusLock(runtimeDir, serviceName string) (*StatusLock, error) {
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runtime dir %s: %w", runtimeDir, err)
	}
	return &StatusLock{
		path:       filepath.Join(runtimeDir, serviceName+".lock"),
		recordPath: filepath.Join(runtimeDir, serviceName+".pid"),
		fl:         flock.New(filepath.Join(runtimeDir, serviceName+".lock")),
	}, nil
}

// Path returns the lock file location.
func (l *StatusLock) Path() string { return l.path }

// RecordPath returns the status record location.
func (l *StatusLock) RecordPath() string { return l.recordPath }

// TryAcquire attempts a non-blocking acquisition. It returns
// (true, nil) when the lock was free, (false, nil) when another
// process holds it, and a non-nil error only on infrastructure
// failure (permissions, I/O).
func (l *StatusLock) TryAcquire() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to access lock file %s: %w", l.path, err)
	}
	return ok, nil
}

// Release drops a previously acquired lock. A holding release also
// retires the published record; a stale record is harmless either way
// because HolderPID verifies liveness.
func (l *StatusLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock file %s: %w", l.path, err)
	}
	if l.held {
		l.held = false
		_ = os.Remove(l.recordPath)
	}
	return nil
}

// Hold acquires the lock for the lifetime of the calling process and
// publishes its status record. The lock is released implicitly by the
// OS when the process exits, however it exits.
func (l *StatusLock) Hold() error {
	ok, err := l.TryAcquire()
	if err != nil {
		return err
	}
	if !ok {
		pid, _ := l.HolderPID()
		return fmt.Errorf("lock %s is already held by pid %d", l.path, pid)
	}

	host, _ := os.Hostname()
	rec := Record{
		PID:  os.Getpid(),
		Host: host,
		App:  filepath.Base(os.Args[0]),
		Args: os.Args[1:],
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode status record: %w", err)
	}
	if err := os.WriteFile(l.recordPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write status record: %w", err)
	}
	l.held = true
	return nil
}

// HolderRecord reads the status record published by the current
// holder. It does not verify liveness; combine with TryAcquire for an
// authoritative answer.
func (l *StatusLock) HolderRecord() (*Record, error) {
	data, err := os.ReadFile(l.recordPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read status record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode status record: %w", err)
	}
	if rec.PID <= 0 {
		return nil, fmt.Errorf("status record in %s carries no pid", l.recordPath)
	}
	return &rec, nil
}

// HolderPID returns the process id of the live lock holder. It fails
// when no record is readable or when the recorded process no longer
// exists, so callers never signal a recycled pid.
func (l *StatusLock) HolderPID() (int, error) {
	rec, err := l.HolderRecord()
	if err != nil {
		return -1, err
	}
	alive, err := process.PidExists(int32(rec.PID))
	if err != nil {
		return -1, fmt.Errorf("failed to check pid %d: %w", rec.PID, err)
	}
	if !alive {
		return -1, fmt.Errorf("recorded holder pid %d is no longer alive", rec.PID)
	}
	return rec.PID, nil
}
