package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8095 {
		t.Errorf("expected default port 8095, got %d", cfg.Server.Port)
	}
	if cfg.Lookup.Policy != PolicyFallback {
		t.Errorf("expected default policy %q, got %q", PolicyFallback, cfg.Lookup.Policy)
	}
	if cfg.Lookup.ResultCount != 10 {
		t.Errorf("expected default result count 10, got %d", cfg.Lookup.ResultCount)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
lookup:
  policy: fanout
providers:
  priority: [itunes, musicbrainz]
  discogs:
    enabled: false
    api_key: abc123
    timeout_seconds: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Lookup.Policy != PolicyFanOut {
		t.Errorf("expected fanout policy, got %q", cfg.Lookup.Policy)
	}
	if len(cfg.Providers.Priority) != 2 || cfg.Providers.Priority[0] != "itunes" {
		t.Errorf("unexpected priority: %v", cfg.Providers.Priority)
	}
	d := cfg.Provider("discogs")
	if d.IsEnabled() {
		t.Error("expected discogs disabled")
	}
	if d.APIKey != "abc123" {
		t.Errorf("expected discogs api key, got %q", d.APIKey)
	}
	if d.Timeout().Seconds() != 5 {
		t.Errorf("expected 5s timeout, got %v", d.Timeout())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TA_PORT", "7070")
	t.Setenv("TA_LOOKUP_POLICY", "fanout")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Lookup.Policy != PolicyFanOut {
		t.Errorf("expected env policy fanout, got %q", cfg.Lookup.Policy)
	}
}

func TestInvalidPolicy(t *testing.T) {
	t.Setenv("TA_LOOKUP_POLICY", "race-everyone")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown policy")
	}
}

func TestProviderUnknownName(t *testing.T) {
	cfg := Default()
	p := cfg.Provider("napster")
	if !p.IsEnabled() {
		t.Error("zero-value provider config should read as enabled")
	}
}
