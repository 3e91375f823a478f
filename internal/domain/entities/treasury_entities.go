package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TreasuryAsset is one managed asset and its allocation bookkeeping.
// Allocated never exceeds the last computed total strategy value.
type TreasuryAsset struct {
	Token             string          `json:"token" db:"token"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	Allocated         decimal.Decimal `json:"allocated" db:"allocated"`
	YieldGenerated    decimal.Decimal `json:"yield_generated" db:"yield_generated"`
	PerformanceScore  decimal.Decimal `json:"performance_score" db:"performance_score"`
	LastRebalanceTime time.Time       `json:"last_rebalance_time" db:"last_rebalance_time"`
	Active            bool            `json:"active" db:"active"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the asset
func (a *TreasuryAsset) Validate() error {
	if a.Token == "" {
		return fmt.Errorf("asset token is required")
	}
	if a.Balance.IsNegative() || a.Allocated.IsNegative() {
		return fmt.Errorf("asset balances cannot be negative")
	}
	return nil
}

// YieldStrategy is a capital destination with a target share of managed value
type YieldStrategy struct {
	StrategyID       string          `json:"strategy_id" db:"strategy_id"`
	Token            string          `json:"token" db:"token"`
	AllocatedAmount  decimal.Decimal `json:"allocated_amount" db:"allocated_amount"`
	TargetPercentage decimal.Decimal `json:"target_percentage" db:"target_percentage"`
	MinAPY           decimal.Decimal `json:"min_apy" db:"min_apy"`
	Active           bool            `json:"active" db:"active"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the strategy
func (s *YieldStrategy) Validate() error {
	if s.StrategyID == "" {
		return fmt.Errorf("strategy id is required")
	}
	if s.TargetPercentage.IsNegative() || s.TargetPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("target percentage must be within [0, 100]")
	}
	if s.AllocatedAmount.IsNegative() {
		return fmt.Errorf("allocated amount cannot be negative")
	}
	return nil
}

// RebalanceReport summarizes one completed rebalance cycle
type RebalanceReport struct {
	Token         string          `json:"token"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalYield    decimal.Decimal `json:"total_yield"`
	Withdrawn     decimal.Decimal `json:"withdrawn"`
	Deposited     decimal.Decimal `json:"deposited"`
	ExitedDueAPY  []string        `json:"exited_due_apy,omitempty"`
	RebalancedAt  time.Time       `json:"rebalanced_at"`
}
