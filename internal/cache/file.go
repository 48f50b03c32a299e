package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/logging"
)

// Entry is one persisted translation.
type Entry struct {
	Text        string    `json:"text"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Translation string    `json:"translation"`
	CachedAt    time.Time `json:"cached_at"`
}

// File persists translations to a JSON file, rewriting it atomically on every
// change. Suited to single-user CLI installs; the daemon uses the SQLite
// backend.
type File struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewFile opens the cache at path. A missing or unreadable file starts an
// empty cache; the file is created on first Store.
func NewFile(path string, logger *slog.Logger) *File {
	logger = logging.NewComponentLogger(logger, "cache")
	c := &File{
		path:    path,
		logger:  logger,
		entries: make(map[Key]Entry),
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load translation cache", "cache_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "delete the file or run 'sheetlingo cache clear'"),
			logging.String(logging.FieldImpact, "cache starts empty; translations will be requested again"))
	}
	return c
}

func (c *File) Lookup(_ context.Context, key Key) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry.Translation, ok, nil
}

func (c *File) Store(_ context.Context, key Key, translation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Text:        key.Text,
		Source:      key.Source,
		Target:      key.Target,
		Translation: translation,
		CachedAt:    time.Now().UTC(),
	}
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Remove deletes one entry and persists the change.
func (c *File) Remove(_ context.Context, key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return fmt.Errorf("cache entry for %q (%s->%s) not found", key.Text, key.Source, key.Target)
	}
	delete(c.entries, key)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// List returns all entries, newest first.
func (c *File) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

func (c *File) Count(context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

func (c *File) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cleared translation cache", logging.String("path", c.path))
	return nil
}

func (c *File) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range entries {
		c.entries[Key{Text: entry.Text, Source: entry.Source, Target: entry.Target}] = entry
	}
	c.logger.Debug("loaded translation cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

func (c *File) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].CachedAt.After(entries[j].CachedAt)
		}
		return entries[i].Text < entries[j].Text
	})
	return entries
}

func (c *File) save() error {
	data, err := json.MarshalIndent(c.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return fileutil.WriteBytesAtomic(c.path, data, 0o644)
}
