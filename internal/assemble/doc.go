// Package assemble turns a job's per-language result tables into export
// tables and writes them as artifacts: one file per language and one
// combined file with the original columns beside each translation.
package assemble
