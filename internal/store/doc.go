// Package store persists sheetlingo state in a single SQLite database.
//
// The schema is created by embedded, ordered migrations recorded in
// schema_migrations. Besides job records (with their errors and artifacts)
// the store exposes three views used by the pipeline:
//
//   - Glossary: per-user protected terms (pipeline.GlossarySource).
//   - Credits: a word-metered ledger (pipeline.CreditLedger).
//   - TranslationCache: a shared translation cache (cache.Store).
//
// Writes retry with backoff while SQLite reports the database busy.
package store
