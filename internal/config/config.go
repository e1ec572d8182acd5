package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the server looks for its config file.
const DefaultPath = "dururack.toml"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Github   GithubConfig   `toml:"github"`
	Sync     SyncConfig     `toml:"sync"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port            int      `toml:"port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path     string `toml:"path"`
	ImageDir string `toml:"image_dir"`
}

type GithubConfig struct {
	Owner         string `toml:"owner"`
	Repo          string `toml:"repo"`
	ArchiveID     string `toml:"archive_id"`
	WebhookSecret string `toml:"webhook_secret"`
	Token         string `toml:"token"`
}

// Enabled reports whether a repository is bound for sync.
func (g GithubConfig) Enabled() bool {
	return g.Owner != "" && g.Repo != ""
}

type SyncConfig struct {
	RefreshSchedule string   `toml:"refresh_schedule"`
	PurgeSchedule   string   `toml:"purge_schedule"`
	PurgeAfter      Duration `toml:"purge_after"`
}

type WatchConfig struct {
	Dir string `toml:"dir"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Duration is a time.Duration written as a string like "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Database: DatabaseConfig{
			Path:     "dururack.db",
			ImageDir: "./images",
		},
		Github: GithubConfig{
			ArchiveID: "github",
		},
		Sync: SyncConfig{
			RefreshSchedule: "@every 1h",
			PurgeSchedule:   "@daily",
			PurgeAfter:      Duration{30 * 24 * time.Hour},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DURURACK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DURURACK_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Github.WebhookSecret = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Github.Token = v
	}
	if v := os.Getenv("DURURACK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}
