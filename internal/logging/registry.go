package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option configures New.
type Option func(*options)

type options struct {
	router      *RouterConfig
	mode        DirMode
	installRoot string
	console     io.Writer
	reporter    *zap.Logger
	now         func() time.Time
}

// WithRouterConfig replaces the built-in template. The value is cloned.
func WithRouterConfig(cfg RouterConfig) Option {
	return func(o *options) {
		clone := cfg.Clone()
		o.router = &clone
	}
}

// WithDirMode selects how the log directory is chosen (default DirModePackage).
func WithDirMode(mode DirMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithInstallRoot sets the root used by DirModePackage.
func WithInstallRoot(root string) Option {
	return func(o *options) {
		o.installRoot = root
	}
}

// WithConsole redirects console sinks (primarily for tests).
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithReporter sets the logger that receives the router's own diagnostics.
// Without it, warnings such as a log directory that cannot be created are
// written to the console.
func WithReporter(logger *zap.Logger) Option {
	return func(o *options) {
		o.reporter = logger
	}
}

// WithClock overrides the time source used for midnight rotation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type sink struct {
	spec   SinkSpec
	core   zapcore.Core
	closer io.Closer
}

// Registry owns the materialized sinks and hands out named loggers. Sinks
// and their band filters are built exactly once, in New; Logger only
// composes them.
type Registry struct {
	config RouterConfig
	dir    string
	sinks  map[string]*sink

	mu      sync.Mutex
	loggers map[string]*zap.Logger
}

// New builds a fresh routing table, resolves file paths, creates the log
// directory and opens every sink.
func New(opts ...Option) (*Registry, error) {
	o := options{
		mode:    DirModePackage,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.router == nil {
		cfg := DefaultRouterConfig()
		o.router = &cfg
	}
	console := zapcore.Lock(zapcore.AddSync(o.console))
	if o.reporter == nil {
		o.reporter = newConsoleReporter(console)
	}

	cfg := *o.router
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dir := ResolvePaths(&cfg, o.mode, o.installRoot, o.reporter)

	encoders := make(map[string]zapcore.Encoder, len(cfg.Formatters))
	for _, name := range sortedKeys(cfg.Formatters) {
		tmpl, err := ParseFormatter(cfg.Formatters[name])
		if err != nil {
			return nil, err
		}
		encoders[name] = newTemplateEncoder(tmpl)
	}

	r := &Registry{
		config:  cfg,
		dir:     dir,
		sinks:   make(map[string]*sink, len(cfg.Sinks)),
		loggers: make(map[string]*zap.Logger),
	}

	for _, name := range sortedKeys(cfg.Sinks) {
		spec := cfg.Sinks[name]
		s := &sink{spec: spec}

		var ws zapcore.WriteSyncer
		switch spec.Kind {
		case SinkConsole:
			ws = console
		case SinkRotatingFile:
			file, err := openRotatingFile(spec.FilePath, spec.Rotation, o.now)
			if err != nil {
				_ = r.Close()
				return nil, fmt.Errorf("sink %q: %w", name, err)
			}
			ws = file
			s.closer = file
		}

		s.core = zapcore.NewCore(encoders[spec.Formatter].Clone(), ws, sinkEnabler(spec))
		r.sinks[name] = s
	}

	o.reporter.Debug("log router initialized",
		zap.String("dir", dir),
		zap.Int("sinks", len(r.sinks)),
	)

	return r, nil
}

// Logger returns the logger registered under name, creating it on first
// use. The empty name and "root" select the root logger. Names without a
// binding inherit from their nearest bound ancestor in the dotted hierarchy.
func (r *Registry) Logger(name string) *zap.Logger {
	if name == RootLogger {
		name = ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if logger, ok := r.loggers[name]; ok {
		return logger
	}

	logger := zap.New(r.coreFor(name), zap.AddCaller())
	if name != "" {
		logger = logger.Named(name)
	}
	r.loggers[name] = logger
	return logger
}

// coreFor walks from name towards the root, collecting sinks from each
// binding until one stops propagation. The nearest binding sets the level.
func (r *Registry) coreFor(name string) zapcore.Core {
	var (
		cores    []zapcore.Core
		seen     = make(map[string]struct{})
		level    Severity
		levelSet bool
	)

	for current := name; ; current = parentOf(current) {
		if b, ok := r.config.binding(current); ok {
			if !levelSet {
				level, levelSet = b.MinSeverity, true
			}
			for _, sinkName := range b.Sinks {
				if _, dup := seen[sinkName]; dup {
					continue
				}
				seen[sinkName] = struct{}{}
				cores = append(cores, r.sinks[sinkName].core)
			}
			if !b.Propagate {
				break
			}
		}
		if current == "" {
			break
		}
	}

	if len(cores) == 0 {
		return zapcore.NewNopCore()
	}
	return &bindingCore{Core: zapcore.NewTee(cores...), level: level}
}

func parentOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// Dir returns the resolved log directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Paths maps each file sink name to its absolute path.
func (r *Registry) Paths() map[string]string {
	out := make(map[string]string)
	for name, s := range r.sinks {
		if s.spec.Kind == SinkRotatingFile {
			out[name] = s.spec.FilePath
		}
	}
	return out
}

// Sinks returns the resolved sink specs.
func (r *Registry) Sinks() []SinkSpec {
	specs := make([]SinkSpec, 0, len(r.config.Sinks))
	for _, name := range sortedKeys(r.config.Sinks) {
		specs = append(specs, r.config.Sinks[name])
	}
	return specs
}

// Sync flushes every sink.
func (r *Registry) Sync() error {
	var errs []error
	for _, name := range sortedKeys(r.sinks) {
		if err := r.sinks[name].core.Sync(); err != nil && !isIgnorableSyncError(err) {
			errs = append(errs, fmt.Errorf("sync %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every file sink.
func (r *Registry) Close() error {
	errs := []error{r.Sync()}
	for _, name := range sortedKeys(r.sinks) {
		if c := r.sinks[name].closer; c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Syncing a terminal or pipe fails with EINVAL/ENOTTY on most platforms.
func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}

// bindingCore applies a logger binding's own threshold on top of its sinks.
type bindingCore struct {
	zapcore.Core
	level Severity
}

func (c *bindingCore) Enabled(l zapcore.Level) bool {
	return severityOf(l) >= c.level && c.Core.Enabled(l)
}

func (c *bindingCore) With(fields []zapcore.Field) zapcore.Core {
	return &bindingCore{Core: c.Core.With(fields), level: c.level}
}

func (c *bindingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if severityOf(ent.Level) < c.level {
		return ce
	}
	return c.Core.Check(ent, ce)
}
