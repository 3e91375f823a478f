package adapters

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/bridge"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/treasury"
)

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// BreakerStrategyAdapter wraps a strategy adapter with a circuit breaker.
// A strategy whose backend keeps failing is cut off instead of stalling
// every rebalance cycle against it.
type BreakerStrategyAdapter struct {
	inner   treasury.StrategyAdapter
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStrategyAdapter wraps a strategy adapter
func NewBreakerStrategyAdapter(name string, inner treasury.StrategyAdapter, logger *zap.Logger) *BreakerStrategyAdapter {
	return &BreakerStrategyAdapter{
		inner:   inner,
		breaker: newBreaker("strategy:"+name, logger),
	}
}

func (a *BreakerStrategyAdapter) Deposit(ctx context.Context, amount decimal.Decimal) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.inner.Deposit(ctx, amount)
	})
	return err
}

func (a *BreakerStrategyAdapter) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.inner.Withdraw(ctx, amount)
	})
	return err
}

func (a *BreakerStrategyAdapter) GetAPY(ctx context.Context) (decimal.Decimal, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.inner.GetAPY(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}

func (a *BreakerStrategyAdapter) GetTotalValue(ctx context.Context) (decimal.Decimal, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.inner.GetTotalValue(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return result.(decimal.Decimal), nil
}

// BreakerBridgeAdapter wraps a bridge adapter with a circuit breaker so a
// dead relay fails dispatches fast while outbound records stay pending.
type BreakerBridgeAdapter struct {
	inner   bridge.Adapter
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerBridgeAdapter wraps a bridge adapter
func NewBreakerBridgeAdapter(chain string, inner bridge.Adapter, logger *zap.Logger) *BreakerBridgeAdapter {
	return &BreakerBridgeAdapter{
		inner:   inner,
		breaker: newBreaker("bridge:"+chain, logger),
	}
}

func (a *BreakerBridgeAdapter) Dispatch(ctx context.Context, targetChain string, recipient entities.Address, amount decimal.Decimal) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.inner.Dispatch(ctx, targetChain, recipient, amount)
	})
	return err
}
