package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// ReferralRepository handles referral record and stats persistence
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateRecord registers a referred-to-referrer binding. The primary key on
// the referred account makes a second registration fail, which keeps the
// binding permanent.
func (r *ReferralRepository) CreateRecord(ctx context.Context, record *entities.ReferralRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validate referral record: %w", err)
	}

	record.CreatedAt = time.Now()

	query := `
		INSERT INTO referral_records (referred, referrer, created_at)
		VALUES (:referred, :referrer, :created_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeAlreadyRegistered,
				"account %s is already referred", record.Referred)
		}
		return fmt.Errorf("create referral record: %w", err)
	}

	return nil
}

// GetRecord retrieves the referral record for a referred account. Returns
// nil without error when the account has no referrer.
func (r *ReferralRepository) GetRecord(ctx context.Context, referred entities.Address) (*entities.ReferralRecord, error) {
	query := `
		SELECT referred, referrer, created_at
		FROM referral_records
		WHERE referred = $1
	`

	var record entities.ReferralRecord
	err := r.db.GetContext(ctx, &record, query, referred)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get referral record: %w", err)
	}

	return &record, nil
}

// CountReferrals returns how many accounts a referrer has registered
func (r *ReferralRepository) CountReferrals(ctx context.Context, referrer entities.Address) (int64, error) {
	query := `SELECT COUNT(*) FROM referral_records WHERE referrer = $1`

	var count int64
	if err := r.db.QueryRowxContext(ctx, query, referrer).Scan(&count); err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}

	return count, nil
}

// GetStats retrieves aggregate stats for a referrer. Returns nil without
// error when the referrer has no stats row yet.
func (r *ReferralRepository) GetStats(ctx context.Context, referrer entities.Address) (*entities.ReferralStats, error) {
	query := `
		SELECT referrer, total_referrals, active_referrals, total_bonus, last_referral_time, updated_at
		FROM referral_stats
		WHERE referrer = $1
	`

	var stats entities.ReferralStats
	err := r.db.GetContext(ctx, &stats, query, referrer)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get referral stats: %w", err)
	}

	return &stats, nil
}

// UpsertStats writes the full stats row for a referrer
func (r *ReferralRepository) UpsertStats(ctx context.Context, stats *entities.ReferralStats) error {
	stats.UpdatedAt = time.Now()

	query := `
		INSERT INTO referral_stats (
			referrer, total_referrals, active_referrals, total_bonus, last_referral_time, updated_at
		)
		VALUES (:referrer, :total_referrals, :active_referrals, :total_bonus, :last_referral_time, :updated_at)
		ON CONFLICT (referrer)
		DO UPDATE SET
			total_referrals = EXCLUDED.total_referrals,
			active_referrals = EXCLUDED.active_referrals,
			total_bonus = EXCLUDED.total_bonus,
			last_referral_time = EXCLUDED.last_referral_time,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, stats); err != nil {
		return fmt.Errorf("upsert referral stats: %w", err)
	}

	return nil
}
