package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TierUnranked is the sentinel for positions below every tier threshold.
const TierUnranked = -1

// TierLevel maps a stake-amount threshold to an annual reward percentage
type TierLevel struct {
	Threshold  decimal.Decimal `json:"threshold" mapstructure:"threshold"`
	APRPercent decimal.Decimal `json:"apr_percent" mapstructure:"apr_percent"`
}

// TierTable is an ascending list of tier levels
type TierTable []TierLevel

// Validate checks ordering and bounds of the table
func (t TierTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("tier table is empty")
	}
	if !sort.SliceIsSorted(t, func(i, j int) bool {
		return t[i].Threshold.LessThan(t[j].Threshold)
	}) {
		return fmt.Errorf("tier thresholds must be strictly ascending")
	}
	for i, lvl := range t {
		if lvl.Threshold.IsNegative() || lvl.APRPercent.IsNegative() {
			return fmt.Errorf("tier %d has negative threshold or APR", i)
		}
	}
	return nil
}

// TierFor returns the index of the highest threshold not exceeding amount,
// or TierUnranked when the amount is below every threshold.
func (t TierTable) TierFor(amount decimal.Decimal) int {
	tier := TierUnranked
	for i, lvl := range t {
		if amount.GreaterThanOrEqual(lvl.Threshold) {
			tier = i
		}
	}
	return tier
}

// APRFor returns the APR percentage for a tier index, zero when unranked.
func (t TierTable) APRFor(tier int) decimal.Decimal {
	if tier < 0 || tier >= len(t) {
		return decimal.Zero
	}
	return t[tier].APRPercent
}

// StakePosition is an account's staking record. A position whose amount
// reaches zero is kept with the unranked tier sentinel, never deleted.
type StakePosition struct {
	Account             Address         `json:"account" db:"account"`
	Amount              decimal.Decimal `json:"amount" db:"amount"`
	StartTime           time.Time       `json:"start_time" db:"start_time"`
	LastRewardClaimTime time.Time       `json:"last_reward_claim_time" db:"last_reward_claim_time"`
	Tier                int             `json:"tier" db:"tier"`
	Locked              bool            `json:"locked" db:"locked"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the position
func (p *StakePosition) Validate() error {
	if err := p.Account.Validate(); err != nil {
		return fmt.Errorf("position account: %w", err)
	}
	if p.Amount.IsNegative() {
		return fmt.Errorf("stake amount cannot be negative")
	}
	if p.Tier < TierUnranked {
		return fmt.Errorf("invalid tier: %d", p.Tier)
	}
	return nil
}

// LockExpiry returns the earliest time a locked position may unstake
func (p *StakePosition) LockExpiry(lockPeriod time.Duration) time.Time {
	return p.StartTime.Add(lockPeriod)
}
