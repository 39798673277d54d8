// ABOUTME: Application configuration loaded from defaults, an XDG config file, .env and FUNNEL_ env vars
// ABOUTME: Later sources override earlier ones; Save writes the JSON config file
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/harperreed/funnel/db"
	"github.com/harperreed/funnel/models"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "funnel"

	// ConfigFileName is the config file inside the XDG config directory.
	ConfigFileName = "config.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FUNNEL_"

	// DefaultHTTPAddr is where `funnel serve` listens.
	DefaultHTTPAddr = "127.0.0.1:8080"
)

// Config holds runtime settings.
type Config struct {
	// Backend is the persistence backend: json, sqlite or badger.
	Backend string `json:"backend" env:"BACKEND"`

	// DataPath overrides the backend location under the XDG data directory.
	DataPath string `json:"data_path,omitempty" env:"DATA_PATH"`

	LogLevel  string `json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"LOG_FORMAT"`
	HTTPAddr  string `json:"http_addr" env:"HTTP_ADDR"`

	// Role is the role a session starts in.
	Role string `json:"role" env:"ROLE"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:   db.KindJSON,
		LogLevel:  "info",
		LogFormat: "text",
		HTTPAddr:  DefaultHTTPAddr,
		Role:      string(models.RoleAdmin),
	}
}

// ConfigPath returns the XDG location of the config file.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads the config from ConfigPath and a .env file in the working
// directory, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), ".env")
}

// LoadFrom is Load with explicit file locations. Missing files are skipped.
func LoadFrom(path, dotenv string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and canonicalizes the role and backend.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = db.KindJSON
	}
	known := false
	for _, k := range db.Kinds {
		if c.Backend == k {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("config: unknown backend %q (expected one of %s)", c.Backend, strings.Join(db.Kinds, ", "))
	}

	role, err := models.ParseRole(c.Role)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Role = string(role)

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		return fmt.Errorf("config: unknown log format %q (expected text or json)", c.LogFormat)
	}
	return nil
}

// ResolvedDataPath returns DataPath, or the backend's default location in
// the XDG data directory.
func (c *Config) ResolvedDataPath() string {
	if c.DataPath != "" {
		return c.DataPath
	}
	dir := filepath.Join(xdg.DataHome, AppName)
	switch c.Backend {
	case db.KindSQLite:
		return filepath.Join(dir, "crm.db")
	case db.KindBadger:
		return filepath.Join(dir, "badger")
	default:
		return filepath.Join(dir, "crm.json")
	}
}

// OpenBackend opens the configured persistence backend.
func (c *Config) OpenBackend() (db.Backend, error) {
	return db.Open(c.Backend, c.ResolvedDataPath())
}

// Save persists the config to ConfigPath.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo persists the config to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
