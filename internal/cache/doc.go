// Package cache stores translations keyed by source text and language pair.
//
// Requests are split by type: Cacheable requests carry a Key, Uncacheable
// ones (any protected terms in play) do not, and Get/Put ignore them. Backends
// are Memory, File and Nop here, plus the SQLite table in internal/store.
// A cache failure never changes a translation result; callers log and move on.
package cache
