package cache

import (
	"context"
	"strings"
)

// Key identifies a translation that does not depend on any job-specific
// protected terms.
type Key struct {
	Text   string
	Source string
	Target string
}

// Request is either Cacheable or Uncacheable. Only Cacheable requests expose
// a Key, so protected-term translations cannot reach a shared cache by
// accident.
type Request interface {
	cacheRequest()
}

// Cacheable is a request with no protected terms.
type Cacheable struct {
	Key Key
}

// Uncacheable is a request whose output depends on the job's protected terms.
type Uncacheable struct {
	Text   string
	Source string
	Target string
	Terms  []string
}

func (Cacheable) cacheRequest()   {}
func (Uncacheable) cacheRequest() {}

// NewRequest classifies a translation request. Any non-blank protected term
// makes it Uncacheable.
func NewRequest(text, source, target string, terms []string) Request {
	for _, term := range terms {
		if strings.TrimSpace(term) != "" {
			return Uncacheable{Text: text, Source: source, Target: target, Terms: terms}
		}
	}
	return Cacheable{Key: Key{Text: text, Source: source, Target: target}}
}

// Store is a translation cache backend. Implementations must be safe for
// concurrent use; concurrent writes to one key are last-writer-wins.
type Store interface {
	Lookup(ctx context.Context, key Key) (string, bool, error)
	Store(ctx context.Context, key Key, translation string) error
}

// Maintainer is implemented by backends that support the cache CLI commands.
type Maintainer interface {
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Get consults s for Cacheable requests only. Uncacheable requests and a nil
// store always miss.
func Get(ctx context.Context, s Store, req Request) (string, bool, error) {
	c, ok := req.(Cacheable)
	if !ok || s == nil {
		return "", false, nil
	}
	return s.Lookup(ctx, c.Key)
}

// Put records translation for Cacheable requests only.
func Put(ctx context.Context, s Store, req Request, translation string) error {
	c, ok := req.(Cacheable)
	if !ok || s == nil {
		return nil
	}
	return s.Store(ctx, c.Key, translation)
}

// Nop never hits and discards writes.
type Nop struct{}

func (Nop) Lookup(context.Context, Key) (string, bool, error) { return "", false, nil }

func (Nop) Store(context.Context, Key, string) error { return nil }
