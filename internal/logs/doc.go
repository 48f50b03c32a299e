// Package logs tails the daemon log file for `sheetlingo logs`.
//
// Reads keep memory bounded, a negative offset means "the last N lines", and
// Stream polls for appended lines until its context ends. JobFilter narrows
// output to one job for both the console and JSON log formats.
package logs
