// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tailpack/lib/compression"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "TAILPACK_CONFIG"

// DefaultMaxMetadataSize is the default bound on the metadata block a
// reader will load.
const DefaultMaxMetadataSize = 64 << 20

// Config is the packer and reader configuration.
type Config struct {
	// Compression selects the per-entry compression method.
	Compression CompressionConfig `yaml:"compression"`

	// Pack configures the pack command.
	Pack PackConfig `yaml:"pack"`

	// Reader configures archive readers.
	Reader ReaderConfig `yaml:"reader"`

	// Log configures diagnostic output.
	Log LogConfig `yaml:"log"`
}

// CompressionConfig mirrors [compression.Policy] in YAML form.
type CompressionConfig struct {
	// MinSize is the largest entry stored without compression.
	// Default: 64
	MinSize int `yaml:"min_size"`

	// DefaultMethod applies to entries no extension rule matches.
	// Values: none, generic, block. Default: block
	DefaultMethod string `yaml:"default_method"`

	// StoredExtensions are never compressed (already-compressed
	// formats). Setting the list replaces the built-in one.
	StoredExtensions []string `yaml:"stored_extensions"`

	// GenericExtensions use the generic (DEFLATE) codec.
	GenericExtensions []string `yaml:"generic_extensions"`
}

// PackConfig configures archive creation.
type PackConfig struct {
	// Workers bounds concurrent compression. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// HostBinary is prepended to the archive when the manifest names
	// no host of its own. Supports ${VAR:-default} expansion.
	HostBinary string `yaml:"host_binary"`
}

// ReaderConfig configures archive readers.
type ReaderConfig struct {
	// MaxMetadataSize bounds the metadata block, in bytes.
	// Default: 64 MiB
	MaxMetadataSize int64 `yaml:"max_metadata_size"`
}

// LogConfig configures diagnostic output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`
}

// Default returns the built-in configuration. Loading a file starts
// from these values, so a file only needs the keys it changes.
func Default() *Config {
	policy := compression.DefaultPolicy()
	return &Config{
		Compression: CompressionConfig{
			MinSize:           policy.MinSize,
			DefaultMethod:     policy.Default.String(),
			StoredExtensions:  policy.StoredExtensions,
			GenericExtensions: policy.GenericExtensions,
		},
		Reader: ReaderConfig{
			MaxMetadataSize: DefaultMaxMetadataSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by TAILPACK_CONFIG.
// There is no search path: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a tailpack.yaml config file, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads and validates configuration from path. Keys absent
// from the file keep their [Default] values; unknown keys are errors.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.expandVariables(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
// ${CONFIG_DIR} is the directory holding the config file.
func (c *Config) expandVariables(configDir string) {
	vars := map[string]string{
		"CONFIG_DIR": configDir,
		"HOME":       os.Getenv("HOME"),
	}
	c.Pack.HostBinary = expandVars(c.Pack.HostBinary, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if c.Pack.Workers < 0 {
		errs = append(errs, fmt.Errorf("pack.workers must be non-negative, got %d", c.Pack.Workers))
	}
	if c.Reader.MaxMetadataSize <= 0 {
		errs = append(errs, fmt.Errorf("reader.max_metadata_size must be positive, got %d", c.Reader.MaxMetadataSize))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Policy converts the compression section into a validated
// [compression.Policy].
func (c *Config) Policy() (compression.Policy, error) {
	method, err := compression.ParseMethod(c.Compression.DefaultMethod)
	if err != nil {
		return compression.Policy{}, fmt.Errorf("compression.default_method: %w", err)
	}
	policy := compression.Policy{
		MinSize:           c.Compression.MinSize,
		StoredExtensions:  c.Compression.StoredExtensions,
		GenericExtensions: c.Compression.GenericExtensions,
		Default:           method,
	}
	if err := policy.Validate(); err != nil {
		return compression.Policy{}, fmt.Errorf("compression: %w", err)
	}
	return policy, nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
}
