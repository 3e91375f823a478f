package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// PatternRepository handles trading pattern persistence
type PatternRepository struct {
	db *sqlx.DB
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *sqlx.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// Get retrieves the trading pattern for an account. Returns nil without
// error when the account has never traded.
func (r *PatternRepository) Get(ctx context.Context, account entities.Address) (*entities.TradingPattern, error) {
	query := `
		SELECT account, buy_count, sell_count, total_buy_amount, total_sell_amount,
		       first_trade_time, last_trade_time, flagged, flag_reason, updated_at
		FROM trading_patterns
		WHERE account = $1
	`

	var pattern entities.TradingPattern
	err := r.db.GetContext(ctx, &pattern, query, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get trading pattern: %w", err)
	}

	return &pattern, nil
}

// Upsert writes the full pattern row. Flags only ever move from false to
// true here; the database never clears one on its own.
func (r *PatternRepository) Upsert(ctx context.Context, pattern *entities.TradingPattern) error {
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("validate trading pattern: %w", err)
	}

	pattern.UpdatedAt = time.Now()

	query := `
		INSERT INTO trading_patterns (
			account, buy_count, sell_count, total_buy_amount, total_sell_amount,
			first_trade_time, last_trade_time, flagged, flag_reason, updated_at
		)
		VALUES (
			:account, :buy_count, :sell_count, :total_buy_amount, :total_sell_amount,
			:first_trade_time, :last_trade_time, :flagged, :flag_reason, :updated_at
		)
		ON CONFLICT (account)
		DO UPDATE SET
			buy_count = EXCLUDED.buy_count,
			sell_count = EXCLUDED.sell_count,
			total_buy_amount = EXCLUDED.total_buy_amount,
			total_sell_amount = EXCLUDED.total_sell_amount,
			first_trade_time = trading_patterns.first_trade_time,
			last_trade_time = EXCLUDED.last_trade_time,
			flagged = trading_patterns.flagged OR EXCLUDED.flagged,
			flag_reason = CASE WHEN trading_patterns.flagged THEN trading_patterns.flag_reason ELSE EXCLUDED.flag_reason END,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, pattern); err != nil {
		return fmt.Errorf("upsert trading pattern: %w", err)
	}

	return nil
}

// ListFlagged retrieves all flagged accounts
func (r *PatternRepository) ListFlagged(ctx context.Context) ([]*entities.TradingPattern, error) {
	query := `
		SELECT account, buy_count, sell_count, total_buy_amount, total_sell_amount,
		       first_trade_time, last_trade_time, flagged, flag_reason, updated_at
		FROM trading_patterns
		WHERE flagged
		ORDER BY updated_at DESC
	`

	var patterns []*entities.TradingPattern
	if err := r.db.SelectContext(ctx, &patterns, query); err != nil {
		return nil, fmt.Errorf("list flagged patterns: %w", err)
	}

	return patterns, nil
}
