package config

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return &Manager{configPath: filepath.Join(dir, "config.json"), config: DefaultConfig()}
}

func TestLoadGeneratesHostIDOnFirstRun(t *testing.T) {
	m := newTestManager(t)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().HostID == "" {
		t.Fatal("expected a generated host_id after first load")
	}
}

func TestLoadPersistsGeneratedHostID(t *testing.T) {
	m := newTestManager(t)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	id := m.Get().HostID

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		t.Fatalf("expected the config file to exist after first load: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("config file is empty")
	}

	m2 := &Manager{configPath: m.configPath, config: DefaultConfig()}
	if err := m2.Load(); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if m2.Get().HostID != id {
		t.Errorf("host_id changed across reload: %q -> %q", id, m2.Get().HostID)
	}
}

func TestValidateRejectsSecondaryWithoutTarget(t *testing.T) {
	c := DefaultConfig()
	c.Role = RoleSecondary
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for a secondary role with no target")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := DefaultConfig()
	c.Port = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for an invalid port")
	}
}

func TestChangeCallbackFiresOnLoad(t *testing.T) {
	m := newTestManager(t)
	fired := false
	m.RegisterChangeCallback(func() { fired = true })
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !fired {
		t.Error("expected the change callback to fire after Load")
	}
}
