package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// TreasuryRepository handles treasury asset and yield strategy persistence
type TreasuryRepository struct {
	db *sqlx.DB
}

// NewTreasuryRepository creates a new treasury repository
func NewTreasuryRepository(db *sqlx.DB) *TreasuryRepository {
	return &TreasuryRepository{db: db}
}

// GetAsset retrieves a treasury asset by token. Returns nil without error
// when the token is not under management.
func (r *TreasuryRepository) GetAsset(ctx context.Context, token string) (*entities.TreasuryAsset, error) {
	query := `
		SELECT token, balance, allocated, yield_generated, performance_score,
		       last_rebalance_time, active, created_at, updated_at
		FROM treasury_assets
		WHERE token = $1
	`

	var asset entities.TreasuryAsset
	err := r.db.GetContext(ctx, &asset, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get treasury asset: %w", err)
	}

	return &asset, nil
}

// UpsertAsset writes the full asset row
func (r *TreasuryRepository) UpsertAsset(ctx context.Context, asset *entities.TreasuryAsset) error {
	if err := asset.Validate(); err != nil {
		return fmt.Errorf("validate treasury asset: %w", err)
	}

	asset.UpdatedAt = time.Now()

	query := `
		INSERT INTO treasury_assets (
			token, balance, allocated, yield_generated, performance_score,
			last_rebalance_time, active, created_at, updated_at
		)
		VALUES (
			:token, :balance, :allocated, :yield_generated, :performance_score,
			:last_rebalance_time, :active, NOW(), :updated_at
		)
		ON CONFLICT (token)
		DO UPDATE SET
			balance = EXCLUDED.balance,
			allocated = EXCLUDED.allocated,
			yield_generated = EXCLUDED.yield_generated,
			performance_score = EXCLUDED.performance_score,
			last_rebalance_time = EXCLUDED.last_rebalance_time,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("upsert treasury asset: %w", err)
	}

	return nil
}

// CreateStrategy registers a yield strategy for a managed token
func (r *TreasuryRepository) CreateStrategy(ctx context.Context, strategy *entities.YieldStrategy) error {
	if err := strategy.Validate(); err != nil {
		return fmt.Errorf("validate yield strategy: %w", err)
	}

	now := time.Now()
	strategy.CreatedAt = now
	strategy.UpdatedAt = now

	query := `
		INSERT INTO yield_strategies (
			strategy_id, token, allocated_amount, target_percentage, min_apy, active, created_at, updated_at
		)
		VALUES (:strategy_id, :token, :allocated_amount, :target_percentage, :min_apy, :active, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, strategy); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("strategy %s already exists: %w", strategy.StrategyID, err)
		}
		return fmt.Errorf("create yield strategy: %w", err)
	}

	return nil
}

// UpdateStrategy writes the mutable fields of a strategy row
func (r *TreasuryRepository) UpdateStrategy(ctx context.Context, strategy *entities.YieldStrategy) error {
	strategy.UpdatedAt = time.Now()

	query := `
		UPDATE yield_strategies
		SET allocated_amount = :allocated_amount,
		    target_percentage = :target_percentage,
		    min_apy = :min_apy,
		    active = :active,
		    updated_at = :updated_at
		WHERE strategy_id = :strategy_id
	`

	result, err := r.db.NamedExecContext(ctx, query, strategy)
	if err != nil {
		return fmt.Errorf("update yield strategy: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("strategy not found: %s", strategy.StrategyID)
	}

	return nil
}

// ListActiveStrategies retrieves the active strategies for a token in
// registration order
func (r *TreasuryRepository) ListActiveStrategies(ctx context.Context, token string) ([]*entities.YieldStrategy, error) {
	query := `
		SELECT strategy_id, token, allocated_amount, target_percentage, min_apy, active, created_at, updated_at
		FROM yield_strategies
		WHERE token = $1 AND active
		ORDER BY created_at
	`

	var strategies []*entities.YieldStrategy
	if err := r.db.SelectContext(ctx, &strategies, query, token); err != nil {
		return nil, fmt.Errorf("list active strategies: %w", err)
	}

	return strategies, nil
}
