package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradingPattern accumulates per-account trade statistics used for
// bot classification. Created on first trade, never deleted.
type TradingPattern struct {
	Account         Address         `json:"account" db:"account"`
	BuyCount        int64           `json:"buy_count" db:"buy_count"`
	SellCount       int64           `json:"sell_count" db:"sell_count"`
	TotalBuyAmount  decimal.Decimal `json:"total_buy_amount" db:"total_buy_amount"`
	TotalSellAmount decimal.Decimal `json:"total_sell_amount" db:"total_sell_amount"`
	FirstTradeTime  time.Time       `json:"first_trade_time" db:"first_trade_time"`
	LastTradeTime   time.Time       `json:"last_trade_time" db:"last_trade_time"`
	Flagged         bool            `json:"flagged" db:"flagged"`
	FlagReason      string          `json:"flag_reason,omitempty" db:"flag_reason"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// NewTradingPattern creates an empty pattern for an account's first trade
func NewTradingPattern(account Address, now time.Time) *TradingPattern {
	return &TradingPattern{
		Account:         account,
		TotalBuyAmount:  decimal.Zero,
		TotalSellAmount: decimal.Zero,
		FirstTradeTime:  now,
		UpdatedAt:       now,
	}
}

// TradeCount returns the total number of observed trades
func (p *TradingPattern) TradeCount() int64 {
	return p.BuyCount + p.SellCount
}

// AverageBuySize returns the mean buy amount, or zero with no buys
func (p *TradingPattern) AverageBuySize() decimal.Decimal {
	if p.BuyCount == 0 {
		return decimal.Zero
	}
	return p.TotalBuyAmount.Div(decimal.NewFromInt(p.BuyCount))
}

// AverageSellSize returns the mean sell amount, or zero with no sells
func (p *TradingPattern) AverageSellSize() decimal.Decimal {
	if p.SellCount == 0 {
		return decimal.Zero
	}
	return p.TotalSellAmount.Div(decimal.NewFromInt(p.SellCount))
}

// Flag marks the pattern as bot-like. Flagging is sticky: once set the
// reason is preserved and later rules cannot overwrite it.
func (p *TradingPattern) Flag(reason string) {
	if p.Flagged {
		return
	}
	p.Flagged = true
	p.FlagReason = reason
}

// Validate validates the pattern
func (p *TradingPattern) Validate() error {
	if err := p.Account.Validate(); err != nil {
		return fmt.Errorf("pattern account: %w", err)
	}
	if p.BuyCount < 0 || p.SellCount < 0 {
		return fmt.Errorf("trade counts cannot be negative")
	}
	if p.TotalBuyAmount.IsNegative() || p.TotalSellAmount.IsNegative() {
		return fmt.Errorf("cumulative amounts cannot be negative")
	}
	return nil
}
