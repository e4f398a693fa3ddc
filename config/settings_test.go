package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManager(path)

	settings, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Server.Port != 7000 {
		t.Errorf("default port = %d, want 7000", settings.Server.Port)
	}
	if settings.Resolve.MaxPollAttempts != 10 {
		t.Errorf("default poll attempts = %d, want 10", settings.Resolve.MaxPollAttempts)
	}
	if settings.Resolve.MinFileSizeBytes != 50*1024*1024 {
		t.Errorf("default min file size = %d", settings.Resolve.MinFileSizeBytes)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults not written to disk: %v", err)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"server":{"port":9090}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090 from file", settings.Server.Port)
	}
	if settings.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", settings.Server.Host)
	}
	if settings.Resolve.PollIntervalSeconds != 5 {
		t.Errorf("poll interval = %d, want default", settings.Resolve.PollIntervalSeconds)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	m := NewManager(path)

	want := DefaultSettings()
	want.Addon.PublicHost = "https://addon.example"
	want.Server.Port = 8080
	if err := m.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Addon.PublicHost != want.Addon.PublicHost || got.Server.Port != want.Server.Port {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestEnvOverridesPublicHost(t *testing.T) {
	t.Setenv("ADDON_URL", "https://public.example/")

	path := filepath.Join(t.TempDir(), "settings.json")
	settings, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Addon.PublicHost != "https://public.example" {
		t.Errorf("public host = %q, want env override with trailing slash trimmed", settings.Addon.PublicHost)
	}
}

func TestPollInterval(t *testing.T) {
	r := ResolveSettings{PollIntervalSeconds: 5}
	if got := r.PollInterval(); got != 5*time.Second {
		t.Errorf("PollInterval = %v", got)
	}
}
