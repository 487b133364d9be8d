package control

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// TestCapabilityHas tests the capability bit set queries callers use
// before invoking an operation
func TestCapabilityHas(t *testing.T) {
	tests := []struct {
		name  string
		flags Capability
		query Capability
		want  bool
	}{
		{"single flag present", SupportsStatus, SupportsStatus, true},
		{"single flag absent", SupportsStatus, SupportsStart, false},
		{"combined flags all present", SupportsStatus | SupportsStop, SupportsStatus | SupportsStop, true},
		{"combined flags partially present", SupportsStatus | SupportsStop, SupportsStatus | SupportsStart, false},
		{"empty set has nothing", 0, SupportsStatus, false},
		{"full set has everything", SupportsStatus | SupportsStart | SupportsStop | SupportsEnabled, SupportsEnabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.Has(tt.query); got != tt.want {
				t.Errorf("Capability(%b).Has(%b) = %v, want %v", tt.flags, tt.query, got, tt.want)
			}
		})
	}
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		flags Capability
		want  string
	}{
		{0, "none"},
		{SupportsStatus, "status"},
		{SupportsStatus | SupportsStop, "status|stop"},
		{SupportsStatus | SupportsStart | SupportsStop | SupportsEnabled, "status|start|stop|enabled"},
	}

	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("Capability(%b).String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}

// TestBaseFallbacks verifies that invoking an operation a backend does
// not support signals through the error side channel instead of
// silently no-opping
func TestBaseFallbacks(t *testing.T) {
	base := NewBase("stub", "svc", zap.NewNop())

	if base.Start() {
		t.Error("Start fallback should return false")
	}
	if !strings.Contains(base.LastError(), "not supported") {
		t.Errorf("Start fallback should record an unsupported error, got %q", base.LastError())
	}
	if base.Stop() {
		t.Error("Stop fallback should return false")
	}
	if base.SetEnabled(true) {
		t.Error("SetEnabled fallback should return false")
	}
	if !base.IsEnabled() {
		t.Error("IsEnabled fallback should report the fixed default true")
	}
	if got := base.CallGenericCommand("anything"); got != nil {
		t.Errorf("generic command fallback should return nil, got %v", got)
	}
}

func TestBaseErrorSideChannel(t *testing.T) {
	base := NewBase("stub", "svc", nil)

	if base.LastError() != "" {
		t.Errorf("fresh control object should carry no error, got %q", base.LastError())
	}

	base.Errorf("operation failed: %s", "permission denied")
	if got := base.LastError(); got != "operation failed: permission denied" {
		t.Errorf("LastError() = %q", got)
	}

	base.SetError("second failure")
	if got := base.LastError(); got != "second failure" {
		t.Errorf("LastError() should report the most recent failure, got %q", got)
	}
}

// TestServiceName tests the canonical name derivation from service ids
func TestServiceName(t *testing.T) {
	tests := []struct {
		name      string
		serviceID string
		want      string
	}{
		{"plain name", "myservice", "myservice"},
		{"path-like id", "org/example/myservice", "myservice"},
		{"trailing separator", "org/example/myservice/", "myservice"},
		{"repeated separators", "org//myservice", "myservice"},
		{"extension trimmed", "myservice.bin", "myservice"},
		{"path with extension", "org/example/myservice.exe", "myservice"},
		{"dotted component id", "com.example.daemon", "com.example"},
		{"bare dotfile", ".hidden", ".hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := NewBase("standard", tt.serviceID, nil)
			if got := base.ServiceName(); got != tt.want {
				t.Errorf("ServiceName(%q) = %q, want %q", tt.serviceID, got, tt.want)
			}
		})
	}
}

func TestServiceNameExecutablePath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "myservice.bin")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	base := NewBase("standard", bin, nil)
	if got := base.ServiceName(); got != "myservice" {
		t.Errorf("ServiceName(%q) = %q, want %q", bin, got, "myservice")
	}
}

// TestServiceNameAgreesAcrossProcesses: the name derived from a bare id
// must match the one a launched process derives from its resolved
// executable path, or the two sides would watch different lock files.
func TestServiceNameAgreesAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "myservice.exe")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	controlSide := ServiceNameFromID("myservice.bin")
	serviceSide := ServiceNameFromID(bin)
	if controlSide != serviceSide {
		t.Errorf("control side derives %q, service side derives %q", controlSide, serviceSide)
	}
}

func TestRegistry(t *testing.T) {
	stub := func(name, serviceID string, opts Options, logger *zap.Logger) (ServiceControl, error) {
		return nil, nil
	}
	Register("test-registry-stub", stub)

	names := Backends()
	found := false
	for _, n := range names {
		if n == "test-registry-stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Backends() = %v, missing registered backend", names)
	}

	if _, err := New("no-such-backend", "svc", Options{}, nil); err == nil {
		t.Error("New with an unknown backend should fail")
	}
	if _, err := New("test-registry-stub", "", Options{}, nil); err == nil {
		t.Error("New with an empty service id should fail")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("registering the same backend twice should panic")
		}
	}()
	stub := func(name, serviceID string, opts Options, logger *zap.Logger) (ServiceControl, error) {
		return nil, nil
	}
	Register("test-duplicate-stub", stub)
	Register("test-duplicate-stub", stub)
}
