package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Save backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full runtime configuration shared by every binary.
type Config struct {
	Level  Level  `yaml:"level"`
	Save   Save   `yaml:"save"`
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
	UI     UI     `yaml:"ui"`
}

// Level selects the level document. An empty path uses the embedded one.
type Level struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // Rebuild the dungeon when Path changes
}

type Save struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	Slot    string `yaml:"slot"` // Row key for the postgres backend
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
	File   string `yaml:"file"`
}

type Server struct {
	Addr      string `yaml:"addr"`
	WSAddr    string `yaml:"ws_addr"`
	Name      string `yaml:"name"`
	Discovery bool   `yaml:"discovery"`
}

type UI struct {
	FPS int `yaml:"fps"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Save: Save{
			Backend: BackendFile,
			Path:    "dungeon-save.json",
			Slot:    "default",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Server: Server{
			Addr:      ":9999",
			Name:      "dungeon",
			Discovery: true,
		},
		UI: UI{FPS: 30},
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	switch c.Save.Backend {
	case BackendFile:
		if c.Save.Path == "" {
			return errors.New("save.path is required for the file backend")
		}
	case BackendPostgres:
		if c.Save.DSN == "" {
			return errors.New("save.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown save backend %q", c.Save.Backend)
	}
	if c.UI.FPS <= 0 {
		return fmt.Errorf("ui.fps must be positive, got %d", c.UI.FPS)
	}
	return nil
}

// FrameInterval is the playback tick length for the configured frame rate.
func (u UI) FrameInterval() time.Duration {
	if u.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(u.FPS)
}
