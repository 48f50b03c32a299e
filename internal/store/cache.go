package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"sheetlingo/internal/cache"
)

// TranslationCache persists cached translations. It implements cache.Store
// and cache.Maintainer.
type TranslationCache struct {
	store *Store
}

// TranslationCache returns the cache view of the store.
func (s *Store) TranslationCache() *TranslationCache {
	return &TranslationCache{store: s}
}

func (c *TranslationCache) Lookup(ctx context.Context, key cache.Key) (string, bool, error) {
	query, args, err := c.store.sq.Select("translation").From("translation_cache").
		Where(sq.Eq{
			"source_text":     key.Text,
			"source_language": key.Source,
			"target_language": key.Target,
		}).
		Limit(1).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}
	var translation string
	err = c.store.db.QueryRowContext(ctx, query, args...).Scan(&translation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return translation, true, nil
}

// Store upserts a translation; the last writer wins.
func (c *TranslationCache) Store(ctx context.Context, key cache.Key, translation string) error {
	now := c.store.timestamp()
	_, err := c.store.exec(ctx, c.store.sq.Insert("translation_cache").
		Columns("source_text", "source_language", "target_language", "translation", "created_at", "updated_at").
		Values(key.Text, key.Source, key.Target, translation, now, now).
		Suffix("ON CONFLICT(source_text, source_language, target_language) DO UPDATE SET translation = excluded.translation, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

func (c *TranslationCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM translation_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

func (c *TranslationCache) Clear(ctx context.Context) error {
	if _, err := c.store.execWithRetry(ctx, "DELETE FROM translation_cache"); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Entries returns cached translations for target, most recent first.
func (c *TranslationCache) Entries(ctx context.Context, target string, limit int) ([]CacheEntry, error) {
	stmt := c.store.sq.Select("source_text", "source_language", "target_language", "translation", "updated_at").
		From("translation_cache").OrderBy("updated_at DESC")
	if target != "" {
		stmt = stmt.Where(sq.Eq{"target_language": target})
	}
	if limit > 0 {
		stmt = stmt.Limit(uint64(limit))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cache entries: %w", err)
	}
	defer rows.Close()
	var out []CacheEntry
	for rows.Next() {
		var (
			e       CacheEntry
			updated sql.NullString
		)
		if err := rows.Scan(&e.SourceText, &e.SourceLanguage, &e.TargetLanguage, &e.Translation, &updated); err != nil {
			return nil, err
		}
		e.UpdatedAt = parseTime(updated)
		out = append(out, e)
	}
	return out, rows.Err()
}
