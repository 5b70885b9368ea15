package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/logrouter/internal/config"
	"github.com/eugenenazirov/logrouter/internal/logging"
)

// ErrUnsupportedLevel is returned for emit levels that would end the process.
var ErrUnsupportedLevel = errors.New("emit supports DEBUG through ERROR only")

// App encapsulates the log registry and the emit limiter.
type App struct {
	registry *logging.Registry
	limiter  rateLimiter
	logger   *zap.Logger
}

// Option configures New.
type Option func(*App, *[]logging.Option)

// WithRateLimiter overrides the emit limiter (primarily for tests).
func WithRateLimiter(limiter rateLimiter) Option {
	return func(a *App, _ *[]logging.Option) {
		a.limiter = limiter
	}
}

// WithLoggingOptions appends options passed to logging.New.
func WithLoggingOptions(opts ...logging.Option) Option {
	return func(_ *App, dst *[]logging.Option) {
		*dst = append(*dst, opts...)
	}
}

// New builds the registry described by cfg. logger receives the router's
// own diagnostics.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	routerOpts, err := cfg.RouterOptions()
	if err != nil {
		return nil, err
	}
	routerOpts = append(routerOpts, logging.WithReporter(logger))

	app := &App{
		limiter: newTokenBucketLimiter(cfg.EmitRPS, cfg.EmitBurst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(app, &routerOpts)
	}

	registry, err := logging.New(routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize log router: %w", err)
	}
	app.registry = registry

	return app, nil
}

// EmitRequest describes a batch of records to write through one logger.
type EmitRequest struct {
	Logger  string
	Level   logging.Severity
	Message string
	Count   int
}

// Emit writes req.Count records, waiting on the rate limiter before each
// one. It returns the number written; cancellation stops early.
func (a *App) Emit(ctx context.Context, req EmitRequest) (int, error) {
	if req.Level > logging.SeverityError {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedLevel, req.Level)
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	logger := a.registry.Logger(req.Logger)
	level := req.Level.ZapLevel()
	written := 0
	for i := 0; i < req.Count; i++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return written, err
			}
		} else if err := ctx.Err(); err != nil {
			return written, err
		}

		var fields []zap.Field
		if req.Count > 1 {
			fields = append(fields, zap.Int("seq", i+1))
		}
		logger.Log(level, req.Message, fields...)
		written++
	}
	return written, nil
}

// Paths lists "name<TAB>level<TAB>path" for each file sink, sorted by sink
// name. level is the sink threshold in lower case.
func (a *App) Paths() []string {
	paths := a.registry.Paths()
	lines := make([]string, 0, len(paths))
	for _, spec := range a.registry.Sinks() {
		if path, ok := paths[spec.Name]; ok {
			lines = append(lines, fmt.Sprintf("%s\t%s\t%s", spec.Name, strings.ToLower(spec.MinSeverity.String()), path))
		}
	}
	return lines
}

// Registry exposes the log registry for callers that need named loggers.
func (a *App) Registry() *logging.Registry {
	return a.registry
}

// Close flushes and closes every sink.
func (a *App) Close() error {
	if a.registry == nil {
		return nil
	}
	return a.registry.Close()
}
