package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Severity orders log records from DEBUG to FATAL. Values match zapcore.Level
// so zap's DPANIC and PANIC sort between ERROR and FATAL.
type Severity int8

const (
	SeverityDebug = Severity(zapcore.DebugLevel)
	SeverityInfo  = Severity(zapcore.InfoLevel)
	SeverityWarn  = Severity(zapcore.WarnLevel)
	SeverityError = Severity(zapcore.ErrorLevel)
	SeverityFatal = Severity(zapcore.FatalLevel)
)

// Severities lists the enum members in ascending order.
func Severities() []Severity {
	return []Severity{SeverityDebug, SeverityInfo, SeverityWarn, SeverityError, SeverityFatal}
}

// ParseSeverity accepts level names case-insensitively, including the
// WARNING and CRITICAL aliases.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return SeverityDebug, nil
	case "INFO":
		return SeverityInfo, nil
	case "WARN", "WARNING":
		return SeverityWarn, nil
	case "ERROR":
		return SeverityError, nil
	case "FATAL", "CRITICAL":
		return SeverityFatal, nil
	}
	return 0, fmt.Errorf("unknown severity %q", raw)
}

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	}
	return zapcore.Level(s).CapitalString()
}

// Valid reports whether s is one of the five enum members.
func (s Severity) Valid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarn, SeverityError, SeverityFatal:
		return true
	}
	return false
}

// ZapLevel converts s to the zap level of the same rank.
func (s Severity) ZapLevel() zapcore.Level {
	return zapcore.Level(s)
}

func severityOf(l zapcore.Level) Severity {
	return Severity(l)
}
