package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "hvault"
  user: "hvault"
  password: "secret"
  sslmode: "disable"
auth:
  api_key: "test-key-123"
ingest:
  target: "phone"
  ledger_dir: "/var/lib/hvault"
watch:
  dir: "/exports"
  interval_seconds: 30
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "hvault" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "hvault")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
	if cfg.Ingest.Target != "phone" {
		t.Errorf("ingest.target = %q, want %q", cfg.Ingest.Target, "phone")
	}
	if cfg.Watch.Interval() != 30*time.Second {
		t.Errorf("watch interval = %v, want 30s", cfg.Watch.Interval())
	}
}

// TestEnvOverride verifies that HVAULT_ env vars take precedence over YAML values.
// This ensures production deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("HVAULT_DB_HOST", "override-host")
	t.Setenv("HVAULT_DB_PORT", "9999")
	t.Setenv("HVAULT_TARGET", "watch-box")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "override-host" {
		t.Errorf("database.host = %q, want %q", cfg.Database.Host, "override-host")
	}
	if cfg.Database.Port != 9999 {
		t.Errorf("database.port = %d, want 9999", cfg.Database.Port)
	}
	if cfg.Ingest.Target != "watch-box" {
		t.Errorf("ingest.target = %q, want %q", cfg.Ingest.Target, "watch-box")
	}
}

// TestDefaults verifies that omitted ingest and watch settings fall back to
// their documented defaults.
func TestDefaults(t *testing.T) {
	minimal := `
server:
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "hvault"
  user: "hvault"
`
	cfg, err := Load(writeTemp(t, minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ingest.Target != "default" {
		t.Errorf("ingest.target = %q, want %q", cfg.Ingest.Target, "default")
	}
	if cfg.Ingest.LedgerDir != "." {
		t.Errorf("ingest.ledger_dir = %q, want %q", cfg.Ingest.LedgerDir, ".")
	}
	if cfg.Watch.Interval() != 60*time.Second {
		t.Errorf("watch interval = %v, want 60s", cfg.Watch.Interval())
	}
}

// TestValidation verifies that missing required fields are rejected.
func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing server port", "database:\n  host: h\n  port: 5432\n  name: n\n  user: u\n"},
		{"missing db host", "server:\n  port: 8080\ndatabase:\n  port: 5432\n  name: n\n  user: u\n"},
		{"missing db name", "server:\n  port: 8080\ndatabase:\n  host: h\n  port: 5432\n  user: u\n"},
		{"tailscale without hostname", validYAML + "tailscale:\n  enabled: true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tc.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// TestDSN verifies connection string formatting and the sslmode default.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "hvault", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/hvault?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
