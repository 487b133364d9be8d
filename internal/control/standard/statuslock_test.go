package standard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatusLockAcquireRelease(t *testing.T) {
	lock, err := NewStatusLock(t.TempDir(), "svc")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := lock.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire on a fresh lock: %v", err)
	}
	if !ok {
		t.Fatal("fresh lock should be acquirable")
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Acquirable again after release
	ok, err = lock.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("lock should be acquirable after release, ok=%v err=%v", ok, err)
	}
	lock.Release()
}

// TestStatusLockMutualExclusion verifies that two lock handles on the
// same path conflict: at most one holder at any time
func TestStatusLockMutualExclusion(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	probe, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}

	if err := holder.Hold(); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	defer holder.Release()

	ok, err := probe.TryAcquire()
	if err != nil {
		t.Fatalf("probe TryAcquire: %v", err)
	}
	if ok {
		probe.Release()
		t.Fatal("probe acquired a lock that is already held")
	}
}

// TestStatusLockHoldPublishesRecord verifies the holder's identity is
// attributable from a failed acquisition
func TestStatusLockHoldPublishesRecord(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Hold(); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	defer holder.Release()

	probe, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}

	rec, err := probe.HolderRecord()
	if err != nil {
		t.Fatalf("HolderRecord: %v", err)
	}
	if rec.PID != os.Getpid() {
		t.Errorf("record pid = %d, want %d", rec.PID, os.Getpid())
	}
	if rec.App == "" {
		t.Error("record should carry the holder's application identifier")
	}

	pid, err := probe.HolderPID()
	if err != nil {
		t.Fatalf("HolderPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("HolderPID = %d, want %d", pid, os.Getpid())
	}
}

func TestStatusLockHoldTwiceFails(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Hold(); err != nil {
		t.Fatal(err)
	}
	defer holder.Release()

	second, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Hold(); err == nil {
		second.Release()
		t.Fatal("second Hold on a held lock should fail")
	} else if !strings.Contains(err.Error(), "already held") {
		t.Errorf("unexpected Hold error: %v", err)
	}
}

func TestStatusLockNoRecord(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"garbage content", "not json"},
		{"record without pid", `{"host":"somewhere"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			lock, err := NewStatusLock(dir, "svc")
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(lock.RecordPath(), []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := lock.HolderPID(); err == nil {
				t.Error("HolderPID should fail when no valid record exists")
			}
		})
	}
}

func TestStatusLockPathLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "runtime")
	lock, err := NewStatusLock(dir, "myservice")
	if err != nil {
		t.Fatalf("NewStatusLock should create missing runtime dirs: %v", err)
	}
	if got, want := lock.Path(), filepath.Join(dir, "myservice.lock"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got, want := lock.RecordPath(), filepath.Join(dir, "myservice.pid"); got != want {
		t.Errorf("RecordPath() = %q, want %q", got, want)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("runtime dir was not created: %v", err)
	}
}

// TestStatusLockRecordOutsideLockedFile: the record must never share a
// file with the lock. Byte-range locking on some platforms denies all
// access to the locked file through other handles, so a record inside
// it would be unreadable while a holder is alive.
func TestStatusLockRecordOutsideLockedFile(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	if err := holder.Hold(); err != nil {
		t.Fatal(err)
	}

	if holder.RecordPath() == holder.Path() {
		t.Fatalf("record path %q must differ from lock path %q", holder.RecordPath(), holder.Path())
	}

	probe, err := NewStatusLock(dir, "svc")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := probe.HolderRecord(); err != nil {
		t.Errorf("record unreadable while the lock is held: %v", err)
	}

	if err := holder.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(holder.RecordPath()); !os.IsNotExist(err) {
		t.Errorf("a holding release should retire the record, stat err = %v", err)
	}
}
