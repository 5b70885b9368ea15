package logging

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// SinkKind selects the writer behind a sink.
type SinkKind string

const (
	SinkConsole      SinkKind = "console"
	SinkRotatingFile SinkKind = "rotating_file"
)

const (
	// RootLogger is the name the root binding is reported under.
	RootLogger = "root"

	defaultLogDir  = "./logs/"
	defaultBackups = 6

	FormatterSimple   = "simple"
	FormatterStandard = "standard"
)

const (
	simpleTemplate   = "{{.Time}} [{{.Logger}}] [{{.Module}}#{{.Function}}] [{{.Level}}]- {{.Message}}"
	standardTemplate = "{{.Time}} [{{.ThreadName}}:{{.ThreadID}}] [{{.Logger}}:{{.Line}}] [{{.Level}}]- {{.Message}}"
)

// ErrInvalidRouterConfig wraps every validation failure.
var ErrInvalidRouterConfig = errors.New("invalid router config")

// FormatterSpec names a text/template rendered once per record.
type FormatterSpec struct {
	Name     string
	Template string
}

// Rotation describes when a file sink starts a new file and how many old
// files survive.
type Rotation struct {
	AtMidnight bool
	Backups    int
	// MaxSizeMB adds a size trigger on top of the time trigger; zero disables it.
	MaxSizeMB int
}

// SinkSpec declares one output.
type SinkSpec struct {
	Name        string
	Kind        SinkKind
	MinSeverity Severity
	Formatter   string
	// FilePath holds a bare filename in a template and the absolute path once
	// ResolvePaths has run.
	FilePath string
	Rotation Rotation
}

// LoggerBinding attaches sinks to a named logger.
type LoggerBinding struct {
	Name        string
	Sinks       []string
	MinSeverity Severity
	Propagate   bool
}

// RouterConfig is the full declarative routing table. Build one with
// DefaultRouterConfig or LoadRouterConfig; each call returns an independent
// value that the caller may mutate.
type RouterConfig struct {
	LogDir     string
	Formatters map[string]FormatterSpec
	Sinks      map[string]SinkSpec
	Root       LoggerBinding
	Loggers    map[string]LoggerBinding
}

// DefaultRouterConfig returns a fresh copy of the built-in template: a DEBUG
// console sink and four tiered rotating files, bound to the "data" logger and
// to the root logger.
func DefaultRouterConfig() RouterConfig {
	tiered := []string{"debug", "info", "warn", "error", "console"}

	cfg := RouterConfig{
		LogDir: defaultLogDir,
		Formatters: map[string]FormatterSpec{
			FormatterSimple:   {Name: FormatterSimple, Template: simpleTemplate},
			FormatterStandard: {Name: FormatterStandard, Template: standardTemplate},
		},
		Sinks: map[string]SinkSpec{
			"console": {
				Name:        "console",
				Kind:        SinkConsole,
				MinSeverity: SeverityDebug,
				Formatter:   FormatterSimple,
			},
		},
		Root: LoggerBinding{
			Sinks:       append([]string(nil), tiered...),
			MinSeverity: SeverityInfo,
		},
		Loggers: map[string]LoggerBinding{
			"data": {
				Name:        "data",
				Sinks:       append([]string(nil), tiered...),
				MinSeverity: SeverityDebug,
			},
		},
	}

	for _, tier := range []struct {
		name  string
		level Severity
	}{
		{"debug", SeverityDebug},
		{"info", SeverityInfo},
		{"warn", SeverityWarn},
		{"error", SeverityError},
	} {
		cfg.Sinks[tier.name] = SinkSpec{
			Name:        tier.name,
			Kind:        SinkRotatingFile,
			MinSeverity: tier.level,
			Formatter:   FormatterSimple,
			FilePath:    tier.name + ".log",
			Rotation:    Rotation{AtMidnight: true, Backups: defaultBackups},
		}
	}

	return cfg
}

// Clone returns a deep copy.
func (c RouterConfig) Clone() RouterConfig {
	out := RouterConfig{
		LogDir:     c.LogDir,
		Formatters: make(map[string]FormatterSpec, len(c.Formatters)),
		Sinks:      make(map[string]SinkSpec, len(c.Sinks)),
		Root:       c.Root.clone(),
		Loggers:    make(map[string]LoggerBinding, len(c.Loggers)),
	}
	for k, v := range c.Formatters {
		out.Formatters[k] = v
	}
	for k, v := range c.Sinks {
		out.Sinks[k] = v
	}
	for k, v := range c.Loggers {
		out.Loggers[k] = v.clone()
	}
	return out
}

func (b LoggerBinding) clone() LoggerBinding {
	b.Sinks = append([]string(nil), b.Sinks...)
	return b
}

// Validate checks referential integrity and that every file sink resolves
// inside the log directory.
func (c RouterConfig) Validate() error {
	for _, name := range sortedKeys(c.Formatters) {
		if c.Formatters[name].Template == "" {
			return fmt.Errorf("%w: formatter %q has an empty template", ErrInvalidRouterConfig, name)
		}
	}

	for _, name := range sortedKeys(c.Sinks) {
		spec := c.Sinks[name]
		if _, ok := c.Formatters[spec.Formatter]; !ok {
			return fmt.Errorf("%w: sink %q references unknown formatter %q", ErrInvalidRouterConfig, name, spec.Formatter)
		}
		if !spec.MinSeverity.Valid() {
			return fmt.Errorf("%w: sink %q has unknown severity %d", ErrInvalidRouterConfig, name, spec.MinSeverity)
		}
		switch spec.Kind {
		case SinkConsole:
		case SinkRotatingFile:
			if spec.FilePath == "" {
				return fmt.Errorf("%w: file sink %q has no filename", ErrInvalidRouterConfig, name)
			}
			if base := filepath.Base(spec.FilePath); base == "." || base == ".." || base == string(filepath.Separator) {
				return fmt.Errorf("%w: file sink %q has invalid filename %q", ErrInvalidRouterConfig, name, spec.FilePath)
			}
			if spec.Rotation.Backups < 0 || spec.Rotation.MaxSizeMB < 0 {
				return fmt.Errorf("%w: file sink %q has negative rotation limits", ErrInvalidRouterConfig, name)
			}
		default:
			return fmt.Errorf("%w: sink %q has unknown kind %q", ErrInvalidRouterConfig, name, spec.Kind)
		}
	}

	if err := c.validateBinding(RootLogger, c.Root); err != nil {
		return err
	}
	for _, name := range sortedKeys(c.Loggers) {
		if err := c.validateBinding(name, c.Loggers[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c RouterConfig) validateBinding(name string, b LoggerBinding) error {
	if !b.MinSeverity.Valid() {
		return fmt.Errorf("%w: logger %q has unknown severity %d", ErrInvalidRouterConfig, name, b.MinSeverity)
	}
	for _, sink := range b.Sinks {
		if _, ok := c.Sinks[sink]; !ok {
			return fmt.Errorf("%w: logger %q references unknown sink %q", ErrInvalidRouterConfig, name, sink)
		}
	}
	return nil
}

// binding returns the binding registered for name; the empty name and
// RootLogger both select the root binding.
func (c RouterConfig) binding(name string) (LoggerBinding, bool) {
	if name == "" || name == RootLogger {
		return c.Root, true
	}
	b, ok := c.Loggers[name]
	return b, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
