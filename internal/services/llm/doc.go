// Package llm provides an OpenRouter-compatible chat client used to translate
// catalog text.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Translate: translate one text with a tone directive.
// Client.HealthCheck: verify API key and model availability.
//
// # Prompting
//
// Each call sends the text inside a small JSON document and asks for
// {"translation": "..."} back. Tone presets (neutral, formal, casual,
// marketing, persuasive, technical) map to canned style lines; any other tone
// string is forwarded verbatim.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty replies and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
//
// # Errors
//
// Translate tags failures with internal/services markers: ErrConfiguration for
// a missing key, ErrTimeout for deadline and network timeouts, and
// ErrExternalService for everything the provider got wrong.
package llm
