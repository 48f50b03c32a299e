// Package preflight provides readiness checks for the directories and
// services sheetlingo depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check, so a
//     misconfigured host is visible before the first job fails.
//   - The CLI "sheetlingo config validate --check" prints each result and
//     exits non-zero when any check fails.
//
// Checks for disabled features are skipped.
package preflight
