package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"guestbook-board/internal/observability"
)

// TxManager runs arrangement batches and placed inserts inside a single
// database transaction
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx executes fn within a transaction. Any error from fn rolls back every
// write made through tx, so readers never observe a half-applied batch.
func (tm *TxManager) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			observability.FromContext(ctx).Error("transaction rollback failed",
				"error", rbErr.Error(),
				"cause", err.Error())
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}
