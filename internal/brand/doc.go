// Package brand masks protected terms with placeholder tokens before
// translation and restores them afterwards.
//
// Tokens have the form __BRAND_<n>__. Restore checks that every token is
// present exactly once before substituting and reports the rest as collisions,
// leaving those tokens literal rather than guessing where the term belongs.
package brand
