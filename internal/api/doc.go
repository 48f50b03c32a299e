// Package api defines the JSON payloads served by the daemon's HTTP API and
// a small client for them.
//
// Conversions from store records and workflow summaries live here so the
// daemon handlers and the CLI's --json output share one representation.
package api
