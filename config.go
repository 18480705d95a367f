// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/uepak

package uepak

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the file-based Unpacker configuration.
type Config struct {
	// StagingRoot is the parent of per-call staging directories; empty means os.TempDir.
	StagingRoot string `toml:"staging_root" json:"staging_root,omitempty"`
	// RarTool is an explicit RAR tool path; empty means lookup.
	RarTool string `toml:"rar_tool" json:"rar_tool,omitempty"`
	// RarTimeout bounds one RAR tool run, as a Go duration string.
	RarTimeout string `toml:"rar_timeout" json:"rar_timeout,omitempty"`
	// DefaultKey is a hex AES-256 key used when a call passes none.
	DefaultKey string `toml:"default_key" json:"-"`
	// StripPrefix is the default strip prefix for extraction; nil means
	// DefaultStripPrefix and an empty string disables stripping.
	StripPrefix *string `toml:"strip_prefix" json:"strip_prefix,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" json:"log_level,omitempty"`
	// LogFormat is console or json.
	LogFormat string `toml:"log_format" json:"log_format,omitempty"`
	// Workers caps batch concurrency; zero means GOMAXPROCS.
	Workers int `toml:"workers" json:"workers,omitempty"`
	// KeepTemp keeps staging directories after archive calls.
	KeepTemp bool `toml:"keep_temp" json:"keep_temp,omitempty"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a TOML config file, applies defaults and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}

	file, err := os.Open(path)
	if err != nil {
		return Config{}, wrapError("open config", path, err)
	}
	defer func() { _ = file.Close() }()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, &Error{Kind: ErrInvalidArgument, Op: "parse config", Path: path, Err: err}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, &Error{Kind: ErrInvalidArgument, Op: "validate config", Path: path, Err: err}
	}

	return cfg, nil
}

// applyDefaults fills empty fields.
func (c *Config) applyDefaults() {
	c.StagingRoot = strings.TrimSpace(c.StagingRoot)
	c.RarTool = strings.TrimSpace(c.RarTool)
	if c.RarTimeout == "" {
		c.RarTimeout = DefaultRarTimeout.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}
	if _, err := c.rarTimeout(); err != nil {
		return err
	}
	if c.DefaultKey != "" {
		if _, err := ParseKey(c.DefaultKey); err != nil {
			return errors.New("default_key is not a valid 64 hex digit AES-256 key")
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format %q is not one of console, json", c.LogFormat)
	}

	return nil
}

// rarTimeout parses RarTimeout; empty means DefaultRarTimeout.
func (c Config) rarTimeout() (time.Duration, error) {
	if c.RarTimeout == "" {
		return DefaultRarTimeout, nil
	}

	d, err := time.ParseDuration(c.RarTimeout)
	if err != nil {
		return 0, fmt.Errorf("rar_timeout: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("rar_timeout must be positive")
	}

	return d, nil
}

// EffectiveStripPrefix returns the configured strip prefix or DefaultStripPrefix when unset.
func (c Config) EffectiveStripPrefix() string {
	if c.StripPrefix == nil {
		return DefaultStripPrefix
	}

	return *c.StripPrefix
}

// Key parses DefaultKey; nil when unset.
func (c Config) Key() (*DecryptionKey, error) {
	if c.DefaultKey == "" {
		return nil, nil
	}

	return ParseKey(c.DefaultKey)
}
