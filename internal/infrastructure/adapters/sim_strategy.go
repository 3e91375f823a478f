package adapters

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimStrategyAdapter is a self-contained yield strategy used in
// development and tests. It holds a balance and accrues no yield on its
// own; tests and admin tooling set the reported value and APY directly.
type SimStrategyAdapter struct {
	mu    sync.Mutex
	value decimal.Decimal
	apy   decimal.Decimal

	name   string
	logger *zap.Logger
}

// NewSimStrategyAdapter creates a simulated strategy with a starting APY
func NewSimStrategyAdapter(name string, apy decimal.Decimal, logger *zap.Logger) *SimStrategyAdapter {
	return &SimStrategyAdapter{name: name, apy: apy, logger: logger}
}

func (a *SimStrategyAdapter) Deposit(_ context.Context, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = a.value.Add(amount)
	a.logger.Debug("Sim strategy deposit", zap.String("strategy", a.name), zap.String("amount", amount.String()))
	return nil
}

func (a *SimStrategyAdapter) Withdraw(_ context.Context, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = a.value.Sub(amount)
	if a.value.IsNegative() {
		a.value = decimal.Zero
	}
	a.logger.Debug("Sim strategy withdraw", zap.String("strategy", a.name), zap.String("amount", amount.String()))
	return nil
}

func (a *SimStrategyAdapter) GetAPY(_ context.Context) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apy, nil
}

func (a *SimStrategyAdapter) GetTotalValue(_ context.Context) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value, nil
}

// SetAPY updates the reported APY
func (a *SimStrategyAdapter) SetAPY(apy decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apy = apy
}

// SetValue overrides the reported value, simulating external yield
func (a *SimStrategyAdapter) SetValue(value decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = value
}
