// Package logging routes zap loggers to a console sink and a set of tiered,
// midnight-rotating log files. Each file sink is narrowed to a severity band
// so a record is written to exactly one file while the console still shows
// everything.
//
// A Registry is built once by the process entrypoint with New and passed to
// whatever needs to log; Registry.Logger looks up or creates loggers by name.
package logging
