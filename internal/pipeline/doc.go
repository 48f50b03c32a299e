// Package pipeline turns an uploaded catalog into per-language translated
// tables.
//
// A Runner prepares a Job (parse, classify columns, merge protected terms,
// estimate words), checks the user's credits, then fans every
// (language, row, text column) cell out to a bounded worker pool. Each cell is
// split into markup and text, protected terms are masked, text segments are
// translated (through the cache when the job has no protected terms) and the
// cell is reassembled. A single aggregator goroutine owns the job's counters,
// result tables, and error list.
//
// Cell failures never abort a job: the cell keeps its original value, the
// error is recorded, and the job ends partial. Only preparation, credit, and
// ledger failures fail a job outright.
package pipeline
