package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type IngestConfig struct {
	// Target tags every stored row when the request carries no target.
	// Defaults to "default".
	Target string `yaml:"target"`
	// LedgerDir holds the import ledger database. Defaults to ".".
	LedgerDir string `yaml:"ledger_dir"`
}

type WatchConfig struct {
	Dir string `yaml:"dir"`
	// IntervalSeconds between directory polls. Defaults to 60.
	IntervalSeconds int `yaml:"interval_seconds"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Interval returns the watch poll interval.
func (w WatchConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSeconds) * time.Second
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file in the working directory is loaded first if present.
// Env vars use the prefix HVAULT_ and underscore-separated paths:
//
//	HVAULT_SERVER_HOST, HVAULT_SERVER_PORT,
//	HVAULT_DB_HOST, HVAULT_DB_PORT, HVAULT_DB_NAME,
//	HVAULT_DB_USER, HVAULT_DB_PASSWORD, HVAULT_DB_SSLMODE,
//	HVAULT_AUTH_API_KEY,
//	HVAULT_TARGET, HVAULT_LEDGER_DIR,
//	HVAULT_WATCH_DIR, HVAULT_WATCH_INTERVAL
func Load(path string) (*Config, error) {
	// Missing .env is fine; godotenv never overrides vars already set.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HVAULT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HVAULT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HVAULT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("HVAULT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("HVAULT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("HVAULT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("HVAULT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("HVAULT_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("HVAULT_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("HVAULT_TARGET"); v != "" {
		cfg.Ingest.Target = v
	}
	if v := os.Getenv("HVAULT_LEDGER_DIR"); v != "" {
		cfg.Ingest.LedgerDir = v
	}
	if v := os.Getenv("HVAULT_WATCH_DIR"); v != "" {
		cfg.Watch.Dir = v
	}
	if v := os.Getenv("HVAULT_WATCH_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Watch.IntervalSeconds = secs
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Ingest.Target == "" {
		c.Ingest.Target = "default"
	}
	if c.Ingest.LedgerDir == "" {
		c.Ingest.LedgerDir = "."
	}
	if c.Watch.IntervalSeconds == 0 {
		c.Watch.IntervalSeconds = 60
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
