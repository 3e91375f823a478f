package treasury

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// scriptedAdapter is a strategy adapter with a settable value, APY and
// failure point
type scriptedAdapter struct {
	value     decimal.Decimal
	apy       decimal.Decimal
	failValue bool

	deposited decimal.Decimal
	withdrawn decimal.Decimal
}

func (a *scriptedAdapter) Deposit(_ context.Context, amount decimal.Decimal) error {
	a.value = a.value.Add(amount)
	a.deposited = a.deposited.Add(amount)
	return nil
}

func (a *scriptedAdapter) Withdraw(_ context.Context, amount decimal.Decimal) error {
	a.value = a.value.Sub(amount)
	a.withdrawn = a.withdrawn.Add(amount)
	return nil
}

func (a *scriptedAdapter) GetAPY(_ context.Context) (decimal.Decimal, error) {
	return a.apy, nil
}

func (a *scriptedAdapter) GetTotalValue(_ context.Context) (decimal.Decimal, error) {
	if a.failValue {
		return decimal.Zero, errors.New("rpc timeout")
	}
	return a.value, nil
}

type treasuryFixture struct {
	engine *Engine
	store  *memory.TreasuryStore
	now    time.Time
}

func newTreasuryFixture(t *testing.T) *treasuryFixture {
	t.Helper()

	cfg := config.TreasuryConfig{
		RebalanceIntervalSecs: 3600,
		Token:                 "AUR",
	}

	f := &treasuryFixture{
		store: memory.NewTreasuryStore(),
		now:   time.Unix(1_700_000_000, 0),
	}
	notifier := notifications.NewLogPublisher(zap.NewNop())
	f.engine = NewEngine(cfg, f.store, notifier, zap.NewNop())
	f.engine.now = func() time.Time { return f.now }

	_, err := f.engine.AddAsset(context.Background(), "AUR", decimal.Zero)
	require.NoError(t, err)
	return f
}

func (f *treasuryFixture) addStrategy(t *testing.T, id string, targetPct, minAPY int64, adapter *scriptedAdapter) {
	t.Helper()
	strategy := &entities.YieldStrategy{
		StrategyID:       id,
		Token:            "AUR",
		AllocatedAmount:  decimal.Zero,
		TargetPercentage: decimal.NewFromInt(targetPct),
		MinAPY:           decimal.NewFromInt(minAPY),
		Active:           true,
	}
	require.NoError(t, f.engine.AddStrategy(context.Background(), strategy, adapter))
}

func TestAddAsset_DuplicateToken(t *testing.T) {
	f := newTreasuryFixture(t)

	_, err := f.engine.AddAsset(context.Background(), "AUR", decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlreadyRegistered, apperrors.CodeOf(err))
}

func TestAddStrategy_UnmanagedToken(t *testing.T) {
	f := newTreasuryFixture(t)

	err := f.engine.AddStrategy(context.Background(), &entities.YieldStrategy{
		StrategyID: "s1",
		Token:      "OTHER",
		Active:     true,
	}, &scriptedAdapter{})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestRebalance_ExitsUnderperformerAndReweights(t *testing.T) {
	ctx := context.Background()
	f := newTreasuryFixture(t)

	healthy := &scriptedAdapter{value: decimal.NewFromInt(1_000), apy: decimal.NewFromInt(5)}
	underperformer := &scriptedAdapter{value: decimal.NewFromInt(500), apy: decimal.RequireFromString("0.5")}
	f.addStrategy(t, "s-healthy", 50, 1, healthy)
	f.addStrategy(t, "s-weak", 30, 1, underperformer)

	report, err := f.engine.Rebalance(ctx)
	require.NoError(t, err)

	assert.True(t, report.TotalValue.Equal(decimal.NewFromInt(1_500)))
	assert.Equal(t, []string{"s-weak"}, report.ExitedDueAPY)

	// The underperformer was fully withdrawn.
	assert.True(t, underperformer.withdrawn.Equal(decimal.NewFromInt(500)))
	assert.True(t, underperformer.value.IsZero())

	// The survivor moved to 50% of total value: 1000 down to 750.
	assert.True(t, healthy.withdrawn.Equal(decimal.NewFromInt(250)))
	assert.True(t, healthy.value.Equal(decimal.NewFromInt(750)))

	asset, err := f.engine.Asset(ctx)
	require.NoError(t, err)
	assert.True(t, asset.Balance.Equal(decimal.NewFromInt(1_500)))
	assert.True(t, asset.Allocated.Equal(decimal.NewFromInt(750)))
	assert.True(t, asset.LastRebalanceTime.Equal(f.now))

	strategies, err := f.store.ListActiveStrategies(ctx, "AUR")
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Equal(t, "s-healthy", strategies[0].StrategyID)
}

func TestRebalance_TargetsClampToDiscoveredValue(t *testing.T) {
	ctx := context.Background()
	f := newTreasuryFixture(t)

	a := &scriptedAdapter{value: decimal.NewFromInt(1_000), apy: decimal.NewFromInt(5)}
	b := &scriptedAdapter{value: decimal.NewFromInt(1_000), apy: decimal.NewFromInt(5)}
	f.addStrategy(t, "s-a", 80, 1, a)
	f.addStrategy(t, "s-b", 80, 1, b)

	report, err := f.engine.Rebalance(ctx)
	require.NoError(t, err)

	asset, err := f.engine.Asset(ctx)
	require.NoError(t, err)
	assert.True(t, asset.Allocated.LessThanOrEqual(report.TotalValue),
		"allocated %s must never exceed total value %s", asset.Allocated, report.TotalValue)
	assert.True(t, asset.Allocated.Equal(decimal.NewFromInt(2_000)))
}

func TestRebalance_TooSoon(t *testing.T) {
	ctx := context.Background()
	f := newTreasuryFixture(t)
	f.addStrategy(t, "s1", 50, 1, &scriptedAdapter{value: decimal.NewFromInt(100), apy: decimal.NewFromInt(5)})

	_, err := f.engine.Rebalance(ctx)
	require.NoError(t, err)

	f.now = f.now.Add(30 * time.Minute)
	_, err = f.engine.Rebalance(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRebalanceTooSoon, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindTooSoon, apperrors.KindOf(err))

	f.now = f.now.Add(31 * time.Minute)
	_, err = f.engine.Rebalance(ctx)
	require.NoError(t, err)
}

func TestRebalance_AdapterFailureAbortsBeforePersist(t *testing.T) {
	ctx := context.Background()
	f := newTreasuryFixture(t)
	f.addStrategy(t, "s-bad", 50, 1, &scriptedAdapter{failValue: true})

	_, err := f.engine.Rebalance(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternalFailure, apperrors.KindOf(err))
	assert.True(t, apperrors.ShouldRetry(err))

	// Nothing was written: the asset clock is untouched and the strategy
	// remains active.
	asset, err := f.engine.Asset(ctx)
	require.NoError(t, err)
	assert.True(t, asset.LastRebalanceTime.IsZero())

	strategies, err := f.store.ListActiveStrategies(ctx, "AUR")
	require.NoError(t, err)
	assert.Len(t, strategies, 1)
}

func TestRebalance_GuardedEntry(t *testing.T) {
	f := newTreasuryFixture(t)

	f.engine.guard.Lock()
	defer f.engine.guard.Unlock()

	_, err := f.engine.Rebalance(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeOperationInProgress, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestRebalance_MissingAdapter(t *testing.T) {
	ctx := context.Background()
	f := newTreasuryFixture(t)

	strategy := &entities.YieldStrategy{
		StrategyID:       "s-orphan",
		Token:            "AUR",
		AllocatedAmount:  decimal.Zero,
		TargetPercentage: decimal.NewFromInt(50),
		MinAPY:           decimal.NewFromInt(1),
		Active:           true,
	}
	require.NoError(t, f.store.CreateStrategy(ctx, strategy))

	_, err := f.engine.Rebalance(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStrategyFailure, apperrors.CodeOf(err))
}
