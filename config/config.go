// Package config loads bridge settings from YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultModuleName is the wasm import module the host functions live in.
const DefaultModuleName = "reveal:decode"

type Config struct {
	Log       Log       `yaml:"log"`
	Allocator Allocator `yaml:"allocator"`
	Limits    Limits    `yaml:"limits"`
	Host      Host      `yaml:"host"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Allocator struct {
	Strategy     string `yaml:"strategy"`
	PoolMaxBytes int    `yaml:"pool_max_bytes"`
}

// Limits bound untrusted input. Zero means unlimited.
type Limits struct {
	MaxBlobBytes int `yaml:"max_blob_bytes"`
	MaxSectors   int `yaml:"max_sectors"`
}

type Host struct {
	ModuleName string `yaml:"module_name"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Allocator: Allocator{
			Strategy:     string(alloc.Zeroed),
			PoolMaxBytes: alloc.DefaultPoolMaxBytes,
		},
		Limits: Limits{
			MaxBlobBytes: 256 << 20,
			MaxSectors:   100000,
		},
		Host: Host{ModuleName: DefaultModuleName},
	}
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, path)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	if !alloc.Strategy(c.Allocator.Strategy).Valid() {
		return invalid("allocator.strategy", "unknown strategy %q", c.Allocator.Strategy)
	}
	if c.Allocator.PoolMaxBytes < 0 {
		return invalid("allocator.pool_max_bytes", "must not be negative, got %d", c.Allocator.PoolMaxBytes)
	}
	if c.Limits.MaxBlobBytes < 0 {
		return invalid("limits.max_blob_bytes", "must not be negative, got %d", c.Limits.MaxBlobBytes)
	}
	if c.Limits.MaxSectors < 0 {
		return invalid("limits.max_sectors", "must not be negative, got %d", c.Limits.MaxSectors)
	}
	if strings.TrimSpace(c.Host.ModuleName) == "" {
		return invalid("host.module_name", "must not be empty")
	}
	return nil
}

// AllocConfig returns the allocator settings in alloc's terms.
func (c Config) AllocConfig() alloc.Config {
	return alloc.Config{
		Strategy:     alloc.Strategy(c.Allocator.Strategy),
		PoolMaxBytes: c.Allocator.PoolMaxBytes,
	}
}

// NewLogger builds a zap logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, invalid("log.level", "unknown level %q", c.Log.Level)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func invalid(field, format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(strings.Split(field, ".")...).
		Detail(format, args...).
		Build()
}
