// Package daemon coordinates the long-running sheetlingo process.
//
// It wires configuration, the job store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and serves the HTTP API used to submit catalogs, follow job progress and
// download artifacts.
//
// Keep orchestration logic here: translation itself lives in the pipeline
// package and queue processing in workflow, while the daemon focuses on
// startup, shutdown, and the API surface.
package daemon
