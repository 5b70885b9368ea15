// Package application provides application initialization and dependency wiring.
// It builds the log registry from the resolved configuration, owns the emit
// rate limiter and exposes the operations behind each CLI command, keeping the
// main package focused on flag parsing and orchestration.
package application
