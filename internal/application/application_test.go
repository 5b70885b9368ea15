package application

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/logrouter/internal/config"
	"github.com/eugenenazirov/logrouter/internal/logging"
)

type countingLimiter struct {
	calls int
	err   error
}

func (c *countingLimiter) Wait(context.Context) error {
	c.calls++
	return c.err
}

func baseTestConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		InstallRoot: t.TempDir(),
		DirMode:     logging.DirModePackage,
		SourceFile:  filepath.Join(t.TempDir(), config.SourceFileName),
		EmitRPS:     0,
		EmitBurst:   0,
	}
}

func newTestApp(t *testing.T, cfg config.Config, opts ...Option) (*App, *bytes.Buffer) {
	t.Helper()
	var console bytes.Buffer
	opts = append(opts, WithLoggingOptions(logging.WithConsole(&console)))
	app, err := New(cfg, zaptest.NewLogger(t), opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = app.Close()
	})
	return app, &console
}

func TestNewInitializesRegistry(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg)

	if app.Registry() == nil {
		t.Fatalf("expected registry to be initialized")
	}
	if app.Registry().Dir() != filepath.Join(cfg.InstallRoot, "logs") {
		t.Fatalf("unexpected log dir %s", app.Registry().Dir())
	}
	if app.limiter != nil {
		t.Fatalf("expected limiter to be disabled at 0 rps")
	}
}

func TestEmitWritesThroughLimiter(t *testing.T) {
	limiter := &countingLimiter{}
	app, console := newTestApp(t, baseTestConfig(t), WithRateLimiter(limiter))

	n, err := app.Emit(context.Background(), EmitRequest{
		Logger:  "data",
		Level:   logging.SeverityWarn,
		Message: "disk usage high",
		Count:   3,
	})
	if err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}
	if n != 3 || limiter.calls != 3 {
		t.Fatalf("expected 3 writes and 3 limiter calls, got %d and %d", n, limiter.calls)
	}
	if err := app.Registry().Sync(); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	warn, err := os.ReadFile(app.Registry().Paths()["warn"])
	if err != nil {
		t.Fatalf("read warn.log: %v", err)
	}
	if got := strings.Count(string(warn), "disk usage high"); got != 3 {
		t.Fatalf("expected 3 records in warn.log, got %d", got)
	}
	if !strings.Contains(string(warn), `{"seq":3}`) {
		t.Fatalf("expected sequence field, got %q", warn)
	}
	if got := strings.Count(console.String(), "disk usage high"); got != 3 {
		t.Fatalf("expected 3 console lines, got %d", got)
	}
}

func TestEmitStopsWhenLimiterFails(t *testing.T) {
	limiter := &countingLimiter{err: context.Canceled}
	app, _ := newTestApp(t, baseTestConfig(t), WithRateLimiter(limiter))

	n, err := app.Emit(context.Background(), EmitRequest{Logger: "data", Level: logging.SeverityInfo, Message: "x", Count: 5})
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Fatalf("expected cancellation before any write, got n=%d err=%v", n, err)
	}
}

func TestEmitRejectsFatal(t *testing.T) {
	app, _ := newTestApp(t, baseTestConfig(t))

	_, err := app.Emit(context.Background(), EmitRequest{Level: logging.SeverityFatal, Message: "x"})
	if !errors.Is(err, ErrUnsupportedLevel) {
		t.Fatalf("expected ErrUnsupportedLevel, got %v", err)
	}
}

func TestPathsListsFileSinks(t *testing.T) {
	cfg := baseTestConfig(t)
	app, _ := newTestApp(t, cfg)

	lines := app.Paths()
	if len(lines) != 4 {
		t.Fatalf("expected 4 file sinks, got %v", lines)
	}
	want := "debug\tdebug\t" + filepath.Join(cfg.InstallRoot, "logs", "debug.log")
	if lines[0] != want {
		t.Fatalf("expected %q, got %q", want, lines[0])
	}
}

func TestNewReturnsErrorForBadRouterFile(t *testing.T) {
	cfg := baseTestConfig(t)
	cfg.RouterFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for missing router file")
	}
}

func TestNewTokenBucketLimiter(t *testing.T) {
	if newTokenBucketLimiter(0, 5) != nil {
		t.Fatalf("expected zero rate to disable limiting")
	}
	limiter := newTokenBucketLimiter(100, 0)
	if limiter == nil {
		t.Fatalf("expected limiter instance")
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("expected first wait to succeed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTokenBucketLimiter(0.001, 1).Wait(ctx); err == nil {
		t.Fatalf("expected canceled context to fail")
	}
}
