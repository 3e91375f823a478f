package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// StakeRepository handles stake position persistence
type StakeRepository struct {
	db *sqlx.DB
}

// NewStakeRepository creates a new stake repository
func NewStakeRepository(db *sqlx.DB) *StakeRepository {
	return &StakeRepository{db: db}
}

// Get retrieves the stake position for an account. Returns nil without
// error when the account has never staked.
func (r *StakeRepository) Get(ctx context.Context, account entities.Address) (*entities.StakePosition, error) {
	query := `
		SELECT account, amount, start_time, last_reward_claim_time, tier, locked, updated_at
		FROM stake_positions
		WHERE account = $1
	`

	var position entities.StakePosition
	err := r.db.GetContext(ctx, &position, query, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get stake position: %w", err)
	}

	return &position, nil
}

// Upsert writes the full stake position row
func (r *StakeRepository) Upsert(ctx context.Context, position *entities.StakePosition) error {
	position.UpdatedAt = time.Now()

	query := `
		INSERT INTO stake_positions (
			account, amount, start_time, last_reward_claim_time, tier, locked, updated_at
		)
		VALUES (:account, :amount, :start_time, :last_reward_claim_time, :tier, :locked, :updated_at)
		ON CONFLICT (account)
		DO UPDATE SET
			amount = EXCLUDED.amount,
			start_time = EXCLUDED.start_time,
			last_reward_claim_time = EXCLUDED.last_reward_claim_time,
			tier = EXCLUDED.tier,
			locked = EXCLUDED.locked,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, position); err != nil {
		return fmt.Errorf("upsert stake position: %w", err)
	}

	return nil
}
