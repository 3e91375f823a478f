package antibot

import (
	"context"
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

const (
	trader       = entities.Address("0x00000000000000000000000000000000000000aa")
	counterparty = entities.Address("0x00000000000000000000000000000000000000bb")
	contractAcct = entities.Address("0x00000000000000000000000000000000000000cc")
	allowedAcct  = entities.Address("0x00000000000000000000000000000000000000dd")
)

func testAntiBotConfig() config.AntiBotConfig {
	return config.AntiBotConfig{
		MaxBuyAmount:      1_000,
		MaxSellAmount:     1_000,
		CooldownSecs:      30,
		BurstTradeCount:   3,
		VarianceMultiple:  20,
		ContractAccounts:  []string{contractAcct.String(), allowedAcct.String()},
		ContractAllowList: []string{allowedAcct.String()},
	}
}

func newTestDetector(cfg config.AntiBotConfig) (*Detector, *memory.PatternStore) {
	store := memory.NewPatternStore()
	notifier := notifications.NewLogPublisher(zap.NewNop())
	return NewDetector(cfg, store, notifier, zap.NewNop()), store
}

func evaluateAndCommit(t *testing.T, d *Detector, account, other entities.Address, amount decimal.Decimal, isBuy bool, now time.Time) {
	t.Helper()
	assessment, err := d.Evaluate(context.Background(), account, other, amount, isBuy, now)
	require.NoError(t, err)
	require.NoError(t, d.Commit(context.Background(), assessment))
}

func TestEvaluate_BuyCeilingShortCircuits(t *testing.T) {
	ctx := context.Background()
	detector, store := newTestDetector(testAntiBotConfig())
	now := time.Now()

	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(600), true, now)

	_, err := detector.Evaluate(ctx, trader, counterparty, decimal.NewFromInt(500), true, now.Add(time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTradingLimitExceeded, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindLimitExceeded, apperrors.KindOf(err))

	// The rejected trade must not move the counters.
	pattern, err := store.Get(ctx, trader)
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.True(t, pattern.TotalBuyAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(1), pattern.BuyCount)
}

func TestEvaluate_ContractOriginFlag(t *testing.T) {
	ctx := context.Background()
	detector, _ := newTestDetector(testAntiBotConfig())
	now := time.Now()

	evaluateAndCommit(t, detector, trader, contractAcct, decimal.NewFromInt(10), false, now)

	flagged, err := detector.IsFlagged(ctx, trader)
	require.NoError(t, err)
	assert.True(t, flagged)

	listed, err := detector.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "contract_origin", listed[0].FlagReason)
}

func TestEvaluate_AllowListedContractNotFlagged(t *testing.T) {
	ctx := context.Background()
	detector, _ := newTestDetector(testAntiBotConfig())

	evaluateAndCommit(t, detector, trader, allowedAcct, decimal.NewFromInt(10), false, time.Now())

	flagged, err := detector.IsFlagged(ctx, trader)
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestEvaluate_RapidTradingFlag(t *testing.T) {
	ctx := context.Background()
	detector, store := newTestDetector(testAntiBotConfig())
	start := time.Now()

	// Four trades one second apart: the fourth exceeds the burst count
	// inside the cooldown window.
	for i := 0; i < 4; i++ {
		evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10), true, start.Add(time.Duration(i)*time.Second))
	}

	pattern, err := store.Get(ctx, trader)
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.True(t, pattern.Flagged)
	assert.Equal(t, "rapid_trading", pattern.FlagReason)
}

func TestEvaluate_SizeVarianceFlag(t *testing.T) {
	ctx := context.Background()
	cfg := testAntiBotConfig()
	cfg.MaxBuyAmount = 0
	cfg.MaxSellAmount = 0
	detector, store := newTestDetector(cfg)
	now := time.Now()

	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10_000), true, now)
	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10), false, now.Add(5*time.Minute))

	pattern, err := store.Get(ctx, trader)
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.True(t, pattern.Flagged)
	assert.Equal(t, "size_variance", pattern.FlagReason)
}

func TestEvaluate_FlagIsSticky(t *testing.T) {
	ctx := context.Background()
	cfg := testAntiBotConfig()
	cfg.MaxBuyAmount = 0
	cfg.MaxSellAmount = 0
	detector, store := newTestDetector(cfg)
	now := time.Now()

	evaluateAndCommit(t, detector, trader, contractAcct, decimal.NewFromInt(10), false, now)

	// Later trades that would trip other rules keep the original reason.
	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10_000), true, now.Add(5*time.Minute))
	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10), false, now.Add(10*time.Minute))

	pattern, err := store.Get(ctx, trader)
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.True(t, pattern.Flagged)
	assert.Equal(t, "contract_origin", pattern.FlagReason)
}

func TestEvaluate_NothingPersistedBeforeCommit(t *testing.T) {
	ctx := context.Background()
	detector, store := newTestDetector(testAntiBotConfig())

	assessment, err := detector.Evaluate(ctx, trader, counterparty, decimal.NewFromInt(100), true, time.Now())
	require.NoError(t, err)
	require.NotNil(t, assessment)

	pattern, err := store.Get(ctx, trader)
	require.NoError(t, err)
	assert.Nil(t, pattern, "evaluate alone must not write the pattern")
}

func TestAssessment_PreviousTradeTime(t *testing.T) {
	ctx := context.Background()
	detector, _ := newTestDetector(testAntiBotConfig())
	first := time.Now()

	evaluateAndCommit(t, detector, trader, counterparty, decimal.NewFromInt(10), true, first)

	second, err := detector.Evaluate(ctx, trader, counterparty, decimal.NewFromInt(10), true, first.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, second.PreviousTradeTime().Equal(first), "assessment must expose the pre-trade timestamp")
}
