package treasury

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

var hundred = decimal.NewFromInt(100)

// StrategyAdapter is the external capability of one yield strategy.
// Every call can fail, and a failure is fatal to the rebalance that
// triggered it.
type StrategyAdapter interface {
	Deposit(ctx context.Context, amount decimal.Decimal) error
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	GetAPY(ctx context.Context) (decimal.Decimal, error)
	GetTotalValue(ctx context.Context) (decimal.Decimal, error)
}

// Repository defines persistence operations for treasury state
type Repository interface {
	GetAsset(ctx context.Context, token string) (*entities.TreasuryAsset, error)
	UpsertAsset(ctx context.Context, asset *entities.TreasuryAsset) error
	CreateStrategy(ctx context.Context, strategy *entities.YieldStrategy) error
	UpdateStrategy(ctx context.Context, strategy *entities.YieldStrategy) error
	ListActiveStrategies(ctx context.Context, token string) ([]*entities.YieldStrategy, error)
}

// Engine reallocates managed capital across yield strategies toward their
// target weights. Rebalancing is a guarded entry point: adapter calls can
// re-enter the service, so a nested rebalance fails fast instead of
// interleaving with the one in flight.
type Engine struct {
	repo     Repository
	notifier notifications.Publisher
	logger   *zap.Logger

	token    string
	interval time.Duration
	now      func() time.Time

	guard sync.Mutex

	adaptersMu sync.RWMutex
	adapters   map[string]StrategyAdapter
}

// NewEngine creates a treasury engine from configuration
func NewEngine(cfg config.TreasuryConfig, repo Repository, notifier notifications.Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		token:    cfg.Token,
		interval: cfg.RebalanceInterval(),
		now:      time.Now,
		adapters: make(map[string]StrategyAdapter),
	}
}

// RegisterAdapter binds the external capability for a strategy id
func (e *Engine) RegisterAdapter(strategyID string, adapter StrategyAdapter) {
	e.adaptersMu.Lock()
	defer e.adaptersMu.Unlock()
	e.adapters[strategyID] = adapter
}

func (e *Engine) adapterFor(strategyID string) (StrategyAdapter, error) {
	e.adaptersMu.RLock()
	defer e.adaptersMu.RUnlock()
	adapter, ok := e.adapters[strategyID]
	if !ok {
		return nil, apperrors.Ef(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
			"no adapter registered for strategy %s", strategyID)
	}
	return adapter, nil
}

// AddAsset places a token under treasury management
func (e *Engine) AddAsset(ctx context.Context, token string, balance decimal.Decimal) (*entities.TreasuryAsset, error) {
	if token == "" {
		return nil, apperrors.E(apperrors.KindValidation, apperrors.CodeInvalidAmount, "token is required")
	}

	existing, err := e.repo.GetAsset(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeAlreadyRegistered,
			"token %s is already managed", token)
	}

	asset := &entities.TreasuryAsset{
		Token:            token,
		Balance:          balance,
		Allocated:        decimal.Zero,
		YieldGenerated:   decimal.Zero,
		PerformanceScore: decimal.Zero,
		Active:           true,
	}
	if err := e.repo.UpsertAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	e.logger.Info("Treasury asset added", zap.String("token", token), zap.String("balance", balance.String()))
	return asset, nil
}

// AddStrategy registers a yield strategy and its adapter for a managed
// token
func (e *Engine) AddStrategy(ctx context.Context, strategy *entities.YieldStrategy, adapter StrategyAdapter) error {
	asset, err := e.repo.GetAsset(ctx, strategy.Token)
	if err != nil {
		return fmt.Errorf("lookup asset: %w", err)
	}
	if asset == nil {
		return apperrors.Ef(apperrors.KindValidation, apperrors.CodeInvalidAmount,
			"token %s is not under management", strategy.Token)
	}

	if err := e.repo.CreateStrategy(ctx, strategy); err != nil {
		return err
	}
	e.RegisterAdapter(strategy.StrategyID, adapter)

	e.logger.Info("Yield strategy added",
		zap.String("strategy", strategy.StrategyID),
		zap.String("token", strategy.Token),
		zap.String("target_pct", strategy.TargetPercentage.String()))

	return nil
}

// Asset returns the managed asset record for the engine's token
func (e *Engine) Asset(ctx context.Context) (*entities.TreasuryAsset, error) {
	return e.repo.GetAsset(ctx, e.token)
}

// Rebalance runs one reallocation cycle. Pass one reads every active
// strategy's reported value, accumulates total value and yield, and fully
// exits strategies whose APY fell below their floor. Pass two deposits or
// withdraws each survivor toward its target weight, drawing on the
// capital freed in pass one. Any adapter failure aborts the cycle before
// any treasury state is persisted.
func (e *Engine) Rebalance(ctx context.Context) (*entities.RebalanceReport, error) {
	if !e.guard.TryLock() {
		return nil, apperrors.E(apperrors.KindStateConflict, apperrors.CodeOperationInProgress,
			"a rebalance is already in progress")
	}
	defer e.guard.Unlock()

	started := e.now()

	asset, err := e.repo.GetAsset(ctx, e.token)
	if err != nil {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}
	if asset == nil {
		return nil, apperrors.Ef(apperrors.KindValidation, apperrors.CodeInvalidAmount,
			"token %s is not under management", e.token)
	}

	if started.Before(asset.LastRebalanceTime.Add(e.interval)) {
		return nil, apperrors.Ef(apperrors.KindTooSoon, apperrors.CodeRebalanceTooSoon,
			"next rebalance allowed at %s", asset.LastRebalanceTime.Add(e.interval).Format(time.RFC3339))
	}

	strategies, err := e.repo.ListActiveStrategies(ctx, e.token)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}

	report, err := e.runPasses(ctx, strategies)
	if err != nil {
		metrics.RebalancesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	// Adapter calls are done; persist the books.
	for _, strategy := range strategies {
		if err := e.repo.UpdateStrategy(ctx, strategy); err != nil {
			return nil, fmt.Errorf("persist strategy %s: %w", strategy.StrategyID, err)
		}
	}

	allocated := decimal.Zero
	for _, strategy := range strategies {
		if strategy.Active {
			allocated = allocated.Add(strategy.AllocatedAmount)
		}
	}

	asset.Balance = report.TotalValue
	asset.Allocated = allocated
	asset.YieldGenerated = asset.YieldGenerated.Add(report.TotalYield)
	asset.LastRebalanceTime = started
	asset.PerformanceScore = performanceScore(report.TotalValue, asset.YieldGenerated)
	if err := e.repo.UpsertAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}

	report.Token = e.token
	report.RebalancedAt = started

	metrics.RebalancesTotal.WithLabelValues("completed").Inc()
	metrics.RebalanceDuration.Observe(e.now().Sub(started).Seconds())
	e.notifier.TreasuryRebalanced(ctx, report)
	e.logger.Info("Treasury rebalanced",
		zap.String("token", e.token),
		zap.String("total_value", report.TotalValue.String()),
		zap.String("total_yield", report.TotalYield.String()),
		zap.Strings("exited", report.ExitedDueAPY))

	return report, nil
}

func (e *Engine) runPasses(ctx context.Context, strategies []*entities.YieldStrategy) (*entities.RebalanceReport, error) {
	report := &entities.RebalanceReport{
		TotalValue: decimal.Zero,
		TotalYield: decimal.Zero,
		Withdrawn:  decimal.Zero,
		Deposited:  decimal.Zero,
	}

	// Pass one: value discovery and underperformer exits.
	for _, strategy := range strategies {
		adapter, err := e.adapterFor(strategy.StrategyID)
		if err != nil {
			return nil, err
		}

		currentValue, err := adapter.GetTotalValue(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
				fmt.Sprintf("read value of strategy %s", strategy.StrategyID), err)
		}

		report.TotalValue = report.TotalValue.Add(currentValue)
		report.TotalYield = report.TotalYield.Add(currentValue.Sub(strategy.AllocatedAmount))

		apy, err := adapter.GetAPY(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
				fmt.Sprintf("read APY of strategy %s", strategy.StrategyID), err)
		}

		if apy.LessThan(strategy.MinAPY) {
			if currentValue.IsPositive() {
				if err := adapter.Withdraw(ctx, currentValue); err != nil {
					return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
						fmt.Sprintf("exit strategy %s", strategy.StrategyID), err)
				}
				report.Withdrawn = report.Withdrawn.Add(currentValue)
			}
			strategy.AllocatedAmount = decimal.Zero
			strategy.Active = false
			report.ExitedDueAPY = append(report.ExitedDueAPY, strategy.StrategyID)
			continue
		}

		strategy.AllocatedAmount = currentValue
	}

	// Pass two: move each survivor toward its target weight. Targets are
	// clamped to the capital still unallocated so the books never claim
	// more than the discovered total.
	remaining := report.TotalValue
	for _, strategy := range strategies {
		if !strategy.Active {
			continue
		}

		target := report.TotalValue.Mul(strategy.TargetPercentage).Div(hundred)
		if target.GreaterThan(remaining) {
			target = remaining
		}

		diff := target.Sub(strategy.AllocatedAmount)
		adapter, err := e.adapterFor(strategy.StrategyID)
		if err != nil {
			return nil, err
		}

		switch {
		case diff.IsPositive():
			if err := adapter.Deposit(ctx, diff); err != nil {
				return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
					fmt.Sprintf("deposit into strategy %s", strategy.StrategyID), err)
			}
			report.Deposited = report.Deposited.Add(diff)
		case diff.IsNegative():
			if err := adapter.Withdraw(ctx, diff.Neg()); err != nil {
				return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeStrategyFailure,
					fmt.Sprintf("withdraw from strategy %s", strategy.StrategyID), err)
			}
			report.Withdrawn = report.Withdrawn.Add(diff.Neg())
		}

		strategy.AllocatedAmount = target
		remaining = remaining.Sub(target)
	}

	return report, nil
}

// performanceScore is cumulative yield as a percentage of managed value
func performanceScore(totalValue, yieldGenerated decimal.Decimal) decimal.Decimal {
	if !totalValue.IsPositive() {
		return decimal.Zero
	}
	return yieldGenerated.Div(totalValue).Mul(hundred)
}
