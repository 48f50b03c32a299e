// Command sheetlingo translates tabular product catalogs into one or more
// target languages.
//
// The CLI runs jobs synchronously (translate), previews how a file's
// columns will be classified (classify), and manages the local state shared
// with the daemon: the job history, per-user glossaries, word credits and
// the translation cache. `sheetlingo serve` starts the daemon, which exposes
// the HTTP API and works through queued jobs; status and submit talk to a
// running daemon over that API.
package main
