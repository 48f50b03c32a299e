// Package notifications delivers job outcome alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Events cover
// finished jobs (completed, partial, failed) plus a test message so the
// workflow manager and the CLI share one formatting path.
package notifications
