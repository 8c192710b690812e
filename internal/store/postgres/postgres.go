// Package postgres implements store.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/safar/go-supply-chain/internal/database"
	"github.com/safar/go-supply-chain/internal/store"
)

type Store struct {
	db         *sqlx.DB
	maxRetries int
}

func New(db *sqlx.DB, maxRetries int) *Store {
	return &Store{db: db, maxRetries: maxRetries}
}

// WithTx runs fn under READ COMMITTED. Inventory reads take row locks and
// serialization failures, deadlocks and version conflicts are retried.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = s.maxRetries

	return database.WithRetry(ctx, s.db, opts, func(sqlTx *sqlx.Tx) error {
		return fn(&tx{tx: sqlTx, forUpdate: true})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	opts := database.DefaultTxOptions()
	opts.ReadOnly = true

	return database.WithTransaction(ctx, s.db, opts, func(sqlTx *sqlx.Tx) error {
		return fn(&tx{tx: sqlTx, readOnly: true})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	tx        *sqlx.Tx
	forUpdate bool
	readOnly  bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

// lockClause appends FOR UPDATE when the transaction is read-write.
func (t *tx) lockClause() string {
	if t.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns a zero-row guarded update into a version conflict that the
// retry loop treats as transient.
func expectOne(op string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w: %w", op, store.ErrVersionConflict, database.ErrOptimisticLockFailed)
	}
	return nil
}
