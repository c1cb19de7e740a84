// Package config loads the persistence core's runtime configuration from
// YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/fcrepo/ocfl-core/osa"
)

// Config is the top-level configuration document.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Session  SessionConfig  `yaml:"session"`
	Index    IndexConfig    `yaml:"index"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig describes the OCFL storage root.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "local", "memory", or "s3"
	Root    string `yaml:"root"`
	Bucket  string `yaml:"bucket,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
	Digest  string `yaml:"digest_algorithm"`
}

// SessionConfig controls storage session defaults.
type SessionConfig struct {
	CommitModeDefault      string   `yaml:"commit_mode_default"`
	StagingRoot            string   `yaml:"staging_root"`
	RollbackDrainTimeoutMS int      `yaml:"rollback_drain_timeout_ms"`
	OrphanSessionTimeout   Duration `yaml:"orphan_session_timeout"`
	ReapInterval           Duration `yaml:"reap_interval"`
}

// Duration wraps time.Duration so it unmarshals from a Go duration string
// ("30s", "1h") rather than a raw integer nanosecond count.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// IndexConfig controls the Fedora↔OCFL index.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the default logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "local",
			Root:    "./storage",
			Digest:  "sha512",
		},
		Session: SessionConfig{
			CommitModeDefault:      "MUTABLE_HEAD",
			StagingRoot:            "./staging",
			RollbackDrainTimeoutMS: 30000,
			OrphanSessionTimeout:   Duration(time.Hour),
			ReapInterval:           Duration(5 * time.Minute),
		},
		Index: IndexConfig{
			Path: "./index.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses a YAML configuration file at path, filling in any
// field left zero with Default's value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// RollbackDrainTimeout returns the configured drain timeout as a
// time.Duration.
func (c *Config) RollbackDrainTimeout() time.Duration {
	return time.Duration(c.Session.RollbackDrainTimeoutMS) * time.Millisecond
}

// CommitMode parses CommitModeDefault into an osa.CommitMode.
func (c *Config) CommitMode() (osa.CommitMode, error) {
	switch c.Session.CommitModeDefault {
	case "MUTABLE_HEAD", "":
		return osa.MutableHead, nil
	case "NEW_VERSION":
		return osa.NewVersion, nil
	default:
		return 0, fmt.Errorf("unknown commit_mode_default: %q", c.Session.CommitModeDefault)
	}
}
