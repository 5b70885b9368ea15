// Package config resolves the tool's runtime settings from CLI flags,
// environment variables and defaults (in that order of precedence), and
// reads the source.ini file that supplies the Postgres connection string and
// Redis URL.
package config
