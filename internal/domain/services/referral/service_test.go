package referral

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/ledger"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

const (
	referrer = entities.Address("0x00000000000000000000000000000000000000aa")
	referred = entities.Address("0x00000000000000000000000000000000000000bb")
	stranger = entities.Address("0x00000000000000000000000000000000000000cc")
)

func testReferralConfig() config.ReferralConfig {
	return config.ReferralConfig{
		Active:           true,
		MaxReferrals:     2,
		MinimumPurchase:  100,
		ReferralBonusPct: 5,
		ReferredBonusPct: 2,
	}
}

func newTestService(cfg config.ReferralConfig) (*Service, *ledger.Service) {
	ledgerSvc := ledger.NewService(memory.NewLedgerStore(), zap.NewNop())
	notifier := notifications.NewLogPublisher(zap.NewNop())
	return NewService(cfg, memory.NewReferralStore(), ledgerSvc, notifier, zap.NewNop()), ledgerSvc
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(testReferralConfig())

	err := svc.Register(ctx, referred, entities.ZeroAddress)
	assert.Equal(t, apperrors.CodeInvalidReferral, apperrors.CodeOf(err))

	err = svc.Register(ctx, entities.Address("nonsense"), referrer)
	assert.Equal(t, apperrors.CodeInvalidReferral, apperrors.CodeOf(err))

	err = svc.Register(ctx, referrer, referrer)
	assert.Equal(t, apperrors.CodeSelfReferral, apperrors.CodeOf(err))
}

func TestRegister_BindingIsPermanent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(testReferralConfig())

	require.NoError(t, svc.Register(ctx, referred, referrer))

	err := svc.Register(ctx, referred, stranger)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlreadyRegistered, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))

	// The original edge survives the rejected rebind.
	bound, err := svc.ReferrerOf(ctx, referred)
	require.NoError(t, err)
	assert.Equal(t, referrer, bound)

	stats, err := svc.StatsOf(ctx, referrer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalReferrals)
}

func TestRegister_CapReached(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(testReferralConfig())

	require.NoError(t, svc.Register(ctx, referred, referrer))
	require.NoError(t, svc.Register(ctx, stranger, referrer))

	err := svc.Register(ctx, entities.Address("0x00000000000000000000000000000000000000dd"), referrer)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeReferralCapReached, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindLimitExceeded, apperrors.KindOf(err))
}

func TestProcessBonus_IssuesBothSides(t *testing.T) {
	ctx := context.Background()
	svc, ledgerSvc := newTestService(testReferralConfig())

	require.NoError(t, svc.Register(ctx, referred, referrer))
	require.NoError(t, svc.ProcessBonus(ctx, referred, decimal.NewFromInt(150)))

	referrerBalance, err := ledgerSvc.BalanceOf(ctx, referrer)
	require.NoError(t, err)
	assert.True(t, referrerBalance.Equal(decimal.RequireFromString("7.5")), "got %s", referrerBalance)

	referredBalance, err := ledgerSvc.BalanceOf(ctx, referred)
	require.NoError(t, err)
	assert.True(t, referredBalance.Equal(decimal.NewFromInt(3)), "got %s", referredBalance)

	// Bonuses are new supply, not a balance move.
	supply, err := ledgerSvc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.Equal(decimal.RequireFromString("10.5")), "got %s", supply)

	stats, err := svc.StatsOf(ctx, referrer)
	require.NoError(t, err)
	assert.True(t, stats.TotalBonus.Equal(decimal.RequireFromString("7.5")))
	assert.False(t, stats.LastReferralTime.IsZero())
}

func TestProcessBonus_BelowMinimumIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, ledgerSvc := newTestService(testReferralConfig())

	require.NoError(t, svc.Register(ctx, referred, referrer))
	require.NoError(t, svc.ProcessBonus(ctx, referred, decimal.NewFromInt(99)))

	balance, err := ledgerSvc.BalanceOf(ctx, referrer)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestProcessBonus_UnreferredIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, ledgerSvc := newTestService(testReferralConfig())

	require.NoError(t, svc.ProcessBonus(ctx, stranger, decimal.NewFromInt(500)))

	supply, err := ledgerSvc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
}

func TestProcessBonus_InactiveProgramIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := testReferralConfig()
	cfg.Active = false
	svc, ledgerSvc := newTestService(cfg)

	require.NoError(t, svc.Register(ctx, referred, referrer))
	require.NoError(t, svc.ProcessBonus(ctx, referred, decimal.NewFromInt(500)))

	supply, err := ledgerSvc.TotalSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
}
