// Package logging builds the slog loggers used by the CLI, the daemon and the
// translation pipeline.
//
// It owns the console and JSON handlers and the field names shared across
// components, and it provides context helpers that tag log lines with the job
// ID, stage and target language carried on a context. NewNop returns a logger
// that discards everything, for tests and optional wiring.
package logging
