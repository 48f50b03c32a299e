package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"sheetlingo/internal/services"
)

// Credits is a word-metered ledger. It implements pipeline.CreditLedger.
// Accounts are opened on first use with the initial grant.
type Credits struct {
	store        *Store
	initialGrant int64
}

// Credits returns the ledger view of the store.
func (s *Store) Credits(initialGrant int64) *Credits {
	if initialGrant < 0 {
		initialGrant = 0
	}
	return &Credits{store: s, initialGrant: initialGrant}
}

// HasSufficientCredits reports whether the user's balance covers words.
func (c *Credits) HasSufficientCredits(ctx context.Context, userID string, words int) (bool, error) {
	balance, err := c.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= int64(words), nil
}

// DebitCredits subtracts words from the user's balance. The balance may go
// negative when a job translated more than it estimated. The job id is taken
// from ctx when present.
func (c *Credits) DebitCredits(ctx context.Context, userID string, words int) error {
	if words <= 0 {
		return nil
	}
	jobID, _ := services.JobIDFromContext(ctx)
	_, err := c.apply(ctx, userID, TransactionDebit, -int64(words), jobID, "")
	return err
}

// Grant adds amount to the user's balance and returns the new balance.
func (c *Credits) Grant(ctx context.Context, userID string, amount int64, note string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	return c.apply(ctx, userID, TransactionGrant, amount, "", note)
}

// Balance returns the user's balance, opening the account if needed.
func (c *Credits) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := c.store.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = c.ensureAccount(ctx, tx, userKey(userID))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

// History returns the user's most recent transactions, newest first. A
// non-positive limit returns all of them.
func (c *Credits) History(ctx context.Context, userID string, limit int) ([]CreditTransaction, error) {
	stmt := c.store.sq.Select("id", "user_id", "kind", "amount", "balance_after", "job_id", "note", "created_at").
		From("credit_transactions").
		Where(sq.Eq{"user_id": userKey(userID)}).
		OrderBy("id DESC")
	if limit > 0 {
		stmt = stmt.Limit(uint64(limit))
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("credit history: %w", err)
	}
	defer rows.Close()

	var out []CreditTransaction
	for rows.Next() {
		var (
			t       CreditTransaction
			jobID   sql.NullString
			note    sql.NullString
			created sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.BalanceAfter, &jobID, &note, &created); err != nil {
			return nil, err
		}
		t.JobID = jobID.String
		t.Note = note.String
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *Credits) apply(ctx context.Context, userID, kind string, amount int64, jobID, note string) (int64, error) {
	user := userKey(userID)
	var after int64
	err := c.store.withTx(ctx, func(tx *sql.Tx) error {
		balance, err := c.ensureAccount(ctx, tx, user)
		if err != nil {
			return err
		}
		after = balance + amount
		now := c.store.timestamp()
		if _, err := txExec(ctx, tx, c.store.sq.Update("credit_accounts").
			Set("balance", after).
			Set("updated_at", now).
			Where(sq.Eq{"user_id": user})); err != nil {
			return err
		}
		_, err = txExec(ctx, tx, c.store.sq.Insert("credit_transactions").
			Columns("user_id", "kind", "amount", "balance_after", "job_id", "note", "created_at").
			Values(user, kind, amount, after, nullableString(jobID), nullableString(note), now))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", kind, err)
	}
	return after, nil
}

// ensureAccount returns the user's balance, creating the account with the
// initial grant on first use.
func (c *Credits) ensureAccount(ctx context.Context, tx *sql.Tx, user string) (int64, error) {
	query, args, err := c.store.sq.Select("balance").From("credit_accounts").Where(sq.Eq{"user_id": user}).ToSql()
	if err != nil {
		return 0, err
	}
	var balance int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	now := c.store.timestamp()
	if _, err := txExec(ctx, tx, c.store.sq.Insert("credit_accounts").
		Columns("user_id", "balance", "created_at", "updated_at").
		Values(user, c.initialGrant, now, now)); err != nil {
		return 0, err
	}
	if c.initialGrant > 0 {
		if _, err := txExec(ctx, tx, c.store.sq.Insert("credit_transactions").
			Columns("user_id", "kind", "amount", "balance_after", "note", "created_at").
			Values(user, TransactionGrant, c.initialGrant, c.initialGrant, "initial grant", now)); err != nil {
			return 0, err
		}
	}
	return c.initialGrant, nil
}
