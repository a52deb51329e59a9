package services

import (
	"context"
	"fmt"

	"github.com/upb/book-tracker/repositories"
)

// TxFunc is work run inside a transaction
type TxFunc[T any] func(ctx context.Context, tx repositories.Transaction) (T, error)

// WithTransaction runs fn in a transaction, committing when it succeeds
// and rolling back when it fails or panics.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for work that produces a value.
// The error returned by fn is passed through unwrapped so callers can
// match repository sentinels on it.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn TxFunc[T]) (result T, err error) {
	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if result, err = fn(ctx, tx); err != nil {
		var zero T
		if rbErr := tx.Rollback(); rbErr != nil {
			return zero, fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
