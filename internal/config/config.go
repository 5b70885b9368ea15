package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eugenenazirov/logrouter/internal/logging"
)

const (
	defaultEmitRPS   = 50.0
	defaultEmitBurst = 10
)

// Config aggregates the tool's runtime settings.
// Precedence: CLI flags > Environment variables > Defaults
type Config struct {
	InstallRoot string
	DirMode     logging.DirMode
	RouterFile  string
	SourceFile  string
	EmitRPS     float64
	EmitBurst   int
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	InstallRoot *string
	DirMode     *string
	RouterFile  *string
	SourceFile  *string
	EmitRPS     *float64
	EmitBurst   *int
}

// Load resolves configuration with precedence:
// CLI flags > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		InstallRoot: logging.DefaultInstallRoot(),
		DirMode:     logging.DirModePackage,
		SourceFile:  DefaultSourceFile(),
		EmitRPS:     defaultEmitRPS,
		EmitBurst:   defaultEmitBurst,
	}
}

// applyEnvConfig applies environment variable configuration. Malformed
// numeric values are ignored; an unknown directory mode is an error.
func applyEnvConfig(cfg *Config) error {
	if root := strings.TrimSpace(os.Getenv("LOGROUTER_INSTALL_ROOT")); root != "" {
		cfg.InstallRoot = root
	}

	if raw := strings.TrimSpace(os.Getenv("LOGROUTER_DIR_MODE")); raw != "" {
		mode, err := logging.ParseDirMode(raw)
		if err != nil {
			return fmt.Errorf("LOGROUTER_DIR_MODE: %w", err)
		}
		cfg.DirMode = mode
	}

	if path := strings.TrimSpace(os.Getenv("LOGROUTER_CONFIG")); path != "" {
		cfg.RouterFile = path
	}

	if path := strings.TrimSpace(os.Getenv("LOGROUTER_SOURCE")); path != "" {
		cfg.SourceFile = path
	}

	if rps := strings.TrimSpace(os.Getenv("LOGROUTER_EMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.EmitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("LOGROUTER_EMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.EmitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.InstallRoot != nil && *overrides.InstallRoot != "" {
		cfg.InstallRoot = *overrides.InstallRoot
	}

	if overrides.DirMode != nil && *overrides.DirMode != "" {
		mode, err := logging.ParseDirMode(*overrides.DirMode)
		if err != nil {
			return fmt.Errorf("parse mode: %w", err)
		}
		cfg.DirMode = mode
	}

	if overrides.RouterFile != nil && *overrides.RouterFile != "" {
		cfg.RouterFile = *overrides.RouterFile
	}

	if overrides.SourceFile != nil && *overrides.SourceFile != "" {
		cfg.SourceFile = *overrides.SourceFile
	}

	if overrides.EmitRPS != nil && *overrides.EmitRPS >= 0 {
		cfg.EmitRPS = *overrides.EmitRPS
	}

	if overrides.EmitBurst != nil && *overrides.EmitBurst >= 0 {
		cfg.EmitBurst = *overrides.EmitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.EmitRPS < 0 {
		return fmt.Errorf("LOGROUTER_EMIT_RPS must be >= 0")
	}
	if cfg.EmitBurst < 0 {
		return fmt.Errorf("LOGROUTER_EMIT_BURST must be >= 0")
	}
	if cfg.InstallRoot == "" && cfg.DirMode == logging.DirModePackage {
		return fmt.Errorf("install root cannot be empty in package mode")
	}
	return nil
}

// RouterOptions turns the settings into logging.New options, loading the
// routing file when one is configured.
func (c Config) RouterOptions() ([]logging.Option, error) {
	opts := []logging.Option{
		logging.WithDirMode(c.DirMode),
		logging.WithInstallRoot(c.InstallRoot),
	}
	if c.RouterFile != "" {
		router, err := logging.LoadRouterConfig(c.RouterFile)
		if err != nil {
			return nil, fmt.Errorf("load router config: %w", err)
		}
		opts = append(opts, logging.WithRouterConfig(router))
	}
	return opts, nil
}
