// Package workflow drives persisted translation jobs through the pipeline.
//
// The Manager polls the store for pending jobs, loads each upload, runs it
// through a pipeline.Runner wired to the configured cache, credit ledger and
// glossary, and persists sampled progress, recorded errors, final counters
// and output artifacts. Submit validates and records new jobs for both the
// HTTP API and the CLI. On start the manager returns jobs left in processing
// by a previous run to the pending queue.
package workflow
