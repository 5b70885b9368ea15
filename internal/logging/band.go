package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Filter decides whether a record at the given severity is written.
type Filter func(Severity) bool

// BandFilter returns the upper bound for a file sink registered at floor, so
// that tiered sinks sharing a logger each capture one disjoint band. The
// ERROR tier, and any threshold outside the lower tiers, is unbounded above.
func BandFilter(floor Severity) Filter {
	switch floor {
	case SeverityDebug:
		return func(s Severity) bool { return s < SeverityInfo }
	case SeverityInfo:
		return func(s Severity) bool { return s < SeverityWarn }
	case SeverityWarn:
		return func(s Severity) bool { return s < SeverityError }
	default:
		return func(Severity) bool { return true }
	}
}

// Admits reports whether sink spec accepts a record at s. Console sinks keep
// their plain threshold; every other kind is narrowed to its band.
func Admits(spec SinkSpec, s Severity) bool {
	if s < spec.MinSeverity {
		return false
	}
	if spec.Kind == SinkConsole {
		return true
	}
	return BandFilter(spec.MinSeverity)(s)
}

// sinkEnabler adapts a sink's admission rule to zapcore.LevelEnabler. The
// band is computed once here, at construction.
func sinkEnabler(spec SinkSpec) zapcore.LevelEnabler {
	floor := spec.MinSeverity
	if spec.Kind == SinkConsole {
		return zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return severityOf(l) >= floor
		})
	}
	band := BandFilter(floor)
	return zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		s := severityOf(l)
		return s >= floor && band(s)
	})
}
