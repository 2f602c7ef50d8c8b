package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/devnote/internal/apperror"
)

// Get returns the stored value for (owner, key).
func (db *DB) Get(ctx context.Context, owner, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM state WHERE owner = ? AND key = ?`,
		owner, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("state", key)
		}
		return "", fmt.Errorf("sqlite: getting state %s/%s: %w", owner, key, err)
	}
	return value, nil
}

// Put inserts or replaces one value.
func (db *DB) Put(ctx context.Context, owner, key, value string) error {
	return db.put(ctx, db.conn, owner, key, value)
}

// PutAll writes all entries in one transaction; either every key is updated
// or none is.
func (db *DB) PutAll(ctx context.Context, owner string, entries map[string]string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning state transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	for key, value := range entries {
		if err := db.put(ctx, tx, owner, key, value); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing state: %w", err)
	}
	return nil
}

// Owners lists owners that have stored state, in name order.
func (db *DB) Owners(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT owner FROM state ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing owners: %w", err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("sqlite: scanning owner: %w", err)
		}
		owners = append(owners, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating owners: %w", err)
	}
	return owners, nil
}

// UpdatedAt reports when (owner, key) was last written.
func (db *DB) UpdatedAt(ctx context.Context, owner, key string) (time.Time, error) {
	var ts time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT updated_at FROM state WHERE owner = ? AND key = ?`,
		owner, key,
	).Scan(&ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, apperror.NotFound("state", key)
		}
		return time.Time{}, fmt.Errorf("sqlite: reading state time %s/%s: %w", owner, key, err)
	}
	return ts, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) put(ctx context.Context, ex execer, owner, key, value string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO state (owner, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		owner, key, value, db.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting state %s/%s: %w", owner, key, err)
	}
	return nil
}
