package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Querier is the transaction handle every storage call runs against.
// Both *sqlx.DB (autocommit) and *sqlx.Tx (caller-controlled transaction) satisfy it.
type Querier interface {
	sqlx.ExtContext
}

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Storage handles all database operations for job groups and their collaborators
type Storage struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewStorage creates a new Storage instance
func NewStorage(logger *slog.Logger) *Storage {
	return &Storage{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// InTx runs fn inside the caller's transaction when q already is one, otherwise
// it opens a transaction on q, commits it when fn succeeds and rolls it back when fn fails.
func InTx(ctx context.Context, q Querier, fn func(Querier) error) (err error) {
	if _, ok := q.(*sqlx.Tx); ok {
		return fn(q)
	}

	b, ok := q.(txBeginner)
	if !ok {
		return fn(q)
	}

	tx, err := b.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rerr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertReturningID executes an INSERT ... RETURNING id statement written with ? placeholders
func insertReturningID(ctx context.Context, q Querier, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, q.Rebind(query), args...); err != nil {
		return 0, err
	}
	return id, nil
}

// lookupID runs a single-column id query and reports whether a row was visible
func lookupID(ctx context.Context, q Querier, query string, args ...interface{}) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, q.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

func getOne(ctx context.Context, q Querier, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func selectAll(ctx context.Context, q Querier, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...)
}
