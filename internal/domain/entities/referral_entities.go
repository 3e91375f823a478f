package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReferralRecord is the directed edge referred -> referrer, created exactly
// once per referred account.
type ReferralRecord struct {
	Referred  Address   `json:"referred" db:"referred"`
	Referrer  Address   `json:"referrer" db:"referrer"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the edge
func (r *ReferralRecord) Validate() error {
	if err := r.Referred.Validate(); err != nil {
		return fmt.Errorf("referred: %w", err)
	}
	if err := r.Referrer.Validate(); err != nil {
		return fmt.Errorf("referrer: %w", err)
	}
	if r.Referred == r.Referrer {
		return fmt.Errorf("self-referral is forbidden")
	}
	return nil
}

// ReferralStats aggregates a referrer's activity
type ReferralStats struct {
	Referrer         Address         `json:"referrer" db:"referrer"`
	TotalReferrals   int64           `json:"total_referrals" db:"total_referrals"`
	ActiveReferrals  int64           `json:"active_referrals" db:"active_referrals"`
	TotalBonus       decimal.Decimal `json:"total_bonus" db:"total_bonus"`
	LastReferralTime time.Time       `json:"last_referral_time" db:"last_referral_time"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// NewReferralStats creates zeroed stats for a referrer
func NewReferralStats(referrer Address) *ReferralStats {
	return &ReferralStats{
		Referrer:   referrer,
		TotalBonus: decimal.Zero,
	}
}
