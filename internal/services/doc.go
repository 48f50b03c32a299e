// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, target languages, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from the
//     translation backend, parsers, and storage can be classified uniformly
//     (see Kind).
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
