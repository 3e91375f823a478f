package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is a value transfer entering the pipeline
type TransferRequest struct {
	Sender      Address         `json:"sender"`
	Recipient   Address         `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	PriorityFee decimal.Decimal `json:"priority_fee"`
}

// Validate validates the request
func (r *TransferRequest) Validate() error {
	if err := r.Sender.Validate(); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if err := r.Recipient.Validate(); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if r.Sender == r.Recipient {
		return fmt.Errorf("sender and recipient must differ")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive")
	}
	if r.PriorityFee.IsNegative() {
		return fmt.Errorf("priority fee cannot be negative")
	}
	return nil
}

// TransferReceipt reports the settled amounts. FeeAmount plus NetAmount
// always equals the gross amount exactly.
type TransferReceipt struct {
	Sender     Address         `json:"sender"`
	Recipient  Address         `json:"recipient"`
	Amount     decimal.Decimal `json:"amount"`
	FeeRate    decimal.Decimal `json:"fee_rate"`
	FeeAmount  decimal.Decimal `json:"fee_amount"`
	NetAmount  decimal.Decimal `json:"net_amount"`
	IsBuy      bool            `json:"is_buy"`
	SettledAt  time.Time       `json:"settled_at"`
}

// MarketState is the market-data snapshot the fee engine prices against
type MarketState struct {
	TrailingHourVolume decimal.Decimal `json:"trailing_hour_volume"`
	PoolDepth          decimal.Decimal `json:"pool_depth"`
	LastTradeTime      time.Time       `json:"last_trade_time"`
}
