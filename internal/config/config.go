package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config defines editor configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	DB       DBConfig       `yaml:"db" toml:"db"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Autosave AutosaveConfig `yaml:"autosave" toml:"autosave"`
	Bundle   BundleConfig   `yaml:"bundle" toml:"bundle"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	// Token guards the API and MCP endpoints when set.
	Token       string `yaml:"token" toml:"token"`
	MaxUploadMB int64  `yaml:"max_upload_mb" toml:"max_upload_mb"`
}

type DBConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type StorageConfig struct {
	// Disabled skips the image table and keeps every image inline in the
	// autosave snapshot.
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

type AutosaveConfig struct {
	Key   string `yaml:"key" toml:"key"`
	Delay string `yaml:"delay" toml:"delay"`
}

type BundleConfig struct {
	// LibDir holds pannellum.js and pannellum.css for bundles and the preview player.
	LibDir string `yaml:"lib_dir" toml:"lib_dir"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	Path  string `yaml:"path" toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			MaxUploadMB: 64,
		},
		DB: DBConfig{
			Path: "panotour.db",
		},
		Autosave: AutosaveConfig{
			Key:   "pano_editor_autosave",
			Delay: "600ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load applies defaults, then the optional config file at path (or
// PANOTOUR_CONFIG_PATH), then PANOTOUR_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PANOTOUR_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("PANOTOUR_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PANOTOUR_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PANOTOUR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if token := os.Getenv("PANOTOUR_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if dbPath := os.Getenv("PANOTOUR_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if disabled := os.Getenv("PANOTOUR_STORAGE_DISABLED"); disabled != "" {
		v, err := strconv.ParseBool(disabled)
		if err != nil {
			return fmt.Errorf("invalid PANOTOUR_STORAGE_DISABLED: %w", err)
		}
		cfg.Storage.Disabled = v
	}
	if delay := os.Getenv("PANOTOUR_AUTOSAVE_DELAY"); delay != "" {
		cfg.Autosave.Delay = delay
	}
	if libDir := os.Getenv("PANOTOUR_BUNDLE_LIB_DIR"); libDir != "" {
		cfg.Bundle.LibDir = libDir
	}
	if level := os.Getenv("PANOTOUR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("PANOTOUR_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return errors.New("db.path is required")
	}
	if strings.TrimSpace(c.Autosave.Key) == "" {
		return errors.New("autosave.key is required")
	}
	if _, err := c.AutosaveDelay(); err != nil {
		return err
	}
	return nil
}

// AutosaveDelay parses the debounce delay.
func (c *Config) AutosaveDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Autosave.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid autosave.delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("autosave.delay %s is negative", d)
	}
	return d, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
