package logging

import "testing"

func TestNewBootstrap(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := NewBootstrap(debug)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger == nil {
			t.Fatalf("expected logger instance")
		}
		if got := logger.Core().Enabled(SeverityDebug.ZapLevel()); got != debug {
			t.Fatalf("debug=%v: expected debug enabled %v, got %v", debug, debug, got)
		}
		_ = logger.Sync()
	}
}
