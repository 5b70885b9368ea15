package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DirMode selects where file sinks live.
type DirMode int

const (
	// DirModeConfig uses RouterConfig.LogDir.
	DirModeConfig DirMode = iota
	// DirModePackage uses a logs directory fixed under the install root.
	DirModePackage
)

const packageLogDir = "logs"

func (m DirMode) String() string {
	switch m {
	case DirModeConfig:
		return "config"
	case DirModePackage:
		return "package"
	}
	return fmt.Sprintf("DirMode(%d)", int(m))
}

// ParseDirMode accepts "config" or "package".
func ParseDirMode(raw string) (DirMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "config":
		return DirModeConfig, nil
	case "package", "":
		return DirModePackage, nil
	}
	return 0, fmt.Errorf("unknown directory mode %q", raw)
}

// ResolvePaths picks the log directory for mode, creates it if missing and
// rewrites every file sink in cfg to an absolute path inside it. A failure to
// create the directory is reported and otherwise ignored; opening the sinks
// later surfaces the real error. It returns the directory.
func ResolvePaths(cfg *RouterConfig, mode DirMode, installRoot string, reporter *zap.Logger) string {
	if reporter == nil {
		reporter = zap.NewNop()
	}

	dir := logDirFor(cfg, mode, installRoot)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	if _, err := os.Stat(dir); err != nil {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			reporter.Warn("failed to create log directory",
				zap.String("dir", dir),
				zap.Error(mkErr),
			)
		}
	}

	for name, spec := range cfg.Sinks {
		if spec.Kind != SinkRotatingFile || spec.FilePath == "" {
			continue
		}
		spec.FilePath = filepath.Join(dir, filepath.Base(spec.FilePath))
		cfg.Sinks[name] = spec
	}
	cfg.LogDir = dir

	return dir
}

func logDirFor(cfg *RouterConfig, mode DirMode, installRoot string) string {
	if mode == DirModeConfig {
		if cfg.LogDir != "" {
			return cfg.LogDir
		}
		return defaultLogDir
	}
	if installRoot == "" {
		installRoot = DefaultInstallRoot()
	}
	return filepath.Join(installRoot, packageLogDir)
}

// DefaultInstallRoot is the directory holding the running executable, or the
// working directory when that cannot be determined.
func DefaultInstallRoot() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, evalErr := filepath.EvalSymlinks(exe); evalErr == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, wdErr := os.Getwd(); wdErr == nil {
		return wd
	}
	return "."
}
