package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// BridgeRepository handles bridge transaction persistence
type BridgeRepository struct {
	db *sqlx.DB
}

// NewBridgeRepository creates a new bridge repository
func NewBridgeRepository(db *sqlx.DB) *BridgeRepository {
	return &BridgeRepository{db: db}
}

// Create records a bridge transaction under its deterministic id
func (r *BridgeRepository) Create(ctx context.Context, tx *entities.BridgeTransaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate bridge transaction: %w", err)
	}

	query := `
		INSERT INTO bridge_transactions (
			id, source_chain, target_chain, sender, recipient, amount, timestamp, status
		)
		VALUES (:id, :source_chain, :target_chain, :sender, :recipient, :amount, :timestamp, :status)
	`

	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("bridge transaction %s already recorded: %w", tx.ID, err)
		}
		return fmt.Errorf("create bridge transaction: %w", err)
	}

	return nil
}

// Get retrieves a bridge transaction by id. Returns nil without error when
// the id has never been seen.
func (r *BridgeRepository) Get(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	query := `
		SELECT id, source_chain, target_chain, sender, recipient, amount, timestamp, status
		FROM bridge_transactions
		WHERE id = $1
	`

	var tx entities.BridgeTransaction
	err := r.db.GetContext(ctx, &tx, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get bridge transaction: %w", err)
	}

	return &tx, nil
}

// MarkProcessed transitions a transaction to the processed state
func (r *BridgeRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `UPDATE bridge_transactions SET status = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, entities.BridgeStatusProcessed, id)
	if err != nil {
		return fmt.Errorf("mark bridge transaction processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("bridge transaction not found: %s", id)
	}

	return nil
}

// ListBySender retrieves the bridge history for a sender, newest first
func (r *BridgeRepository) ListBySender(ctx context.Context, sender entities.Address, limit int) ([]*entities.BridgeTransaction, error) {
	query := `
		SELECT id, source_chain, target_chain, sender, recipient, amount, timestamp, status
		FROM bridge_transactions
		WHERE sender = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	var txs []*entities.BridgeTransaction
	if err := r.db.SelectContext(ctx, &txs, query, sender, limit); err != nil {
		return nil, fmt.Errorf("list bridge transactions: %w", err)
	}

	return txs, nil
}

// NextNonce atomically advances and returns the outbound bridge nonce
func (r *BridgeRepository) NextNonce(ctx context.Context) (uint64, error) {
	query := `UPDATE bridge_nonces SET nonce = nonce + 1 WHERE id = 1 RETURNING nonce`

	var nonce uint64
	if err := r.db.QueryRowxContext(ctx, query).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("advance bridge nonce: %w", err)
	}

	return nonce, nil
}
