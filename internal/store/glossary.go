package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Glossary stores per-user protected terms. It implements
// pipeline.GlossarySource.
type Glossary struct {
	store *Store
}

// Glossary returns the glossary view of the store.
func (s *Store) Glossary() *Glossary {
	return &Glossary{store: s}
}

// Terms returns the user's terms in insertion order.
func (g *Glossary) Terms(ctx context.Context, userID string) ([]string, error) {
	entries, err := g.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Term
	}
	return out, nil
}

// List returns the user's glossary entries in insertion order.
func (g *Glossary) List(ctx context.Context, userID string) ([]GlossaryTerm, error) {
	query, args, err := g.store.sq.Select("id", "user_id", "term", "position", "created_at").
		From("glossary_terms").
		Where(sq.Eq{"user_id": userKey(userID)}).
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := g.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list glossary: %w", err)
	}
	defer rows.Close()

	var out []GlossaryTerm
	for rows.Next() {
		var (
			t       GlossaryTerm
			created sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Term, &t.Position, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Add appends terms to the user's glossary. Blank terms and terms already
// present (case-insensitively) are skipped. It returns the number added.
func (g *Glossary) Add(ctx context.Context, userID string, terms ...string) (int, error) {
	user := userKey(userID)
	added := 0
	err := g.store.withTx(ctx, func(tx *sql.Tx) error {
		added = 0
		var next sql.NullInt64
		query, args, err := g.store.sq.Select("MAX(position)").From("glossary_terms").
			Where(sq.Eq{"user_id": user}).ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
			return err
		}
		position := 0
		if next.Valid {
			position = int(next.Int64) + 1
		}
		now := g.store.timestamp()
		for _, term := range terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			res, err := txExec(ctx, tx, g.store.sq.Insert("glossary_terms").
				Columns("user_id", "term", "position", "created_at").
				Values(user, term, position, now).
				Suffix("ON CONFLICT(user_id, term) DO NOTHING"))
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
				position++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add glossary terms: %w", err)
	}
	return added, nil
}

// Remove deletes a term, matched case-insensitively.
func (g *Glossary) Remove(ctx context.Context, userID, term string) (bool, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return false, errors.New("term is required")
	}
	res, err := g.store.exec(ctx, g.store.sq.Delete("glossary_terms").
		Where(sq.Eq{"user_id": userKey(userID), "term": term}))
	if err != nil {
		return false, fmt.Errorf("remove glossary term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every term for the user.
func (g *Glossary) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := g.store.exec(ctx, g.store.sq.Delete("glossary_terms").Where(sq.Eq{"user_id": userKey(userID)}))
	if err != nil {
		return 0, fmt.Errorf("clear glossary: %w", err)
	}
	return res.RowsAffected()
}
