// Package config loads, normalizes, and validates sheetlingo configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment variables such as
// SHEETLINGO_LLM_API_KEY. Always obtain settings through this package so
// downstream code receives expanded paths and clear validation errors.
package config
