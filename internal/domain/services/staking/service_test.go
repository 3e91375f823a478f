package staking

import (
	"context"
	"testing"
	"time"

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

const staker = entities.Address("0x00000000000000000000000000000000000000aa")

func testStakingConfig() config.StakingConfig {
	return config.StakingConfig{
		LockPeriodSecs: 30 * 24 * 3600,
		Tiers: []config.TierEntry{
			{Threshold: 1_000, APRPercent: 5},
			{Threshold: 5_000, APRPercent: 10},
			{Threshold: 25_000, APRPercent: 15},
		},
	}
}

type stakingFixture struct {
	svc    *Service
	ledger *ledger.Service
	now    time.Time
}

func newStakingFixture(t *testing.T, funded decimal.Decimal) *stakingFixture {
	t.Helper()

	f := &stakingFixture{now: time.Unix(1_700_000_000, 0)}
	f.ledger = ledger.NewService(memory.NewLedgerStore(), zap.NewNop())
	notifier := notifications.NewLogPublisher(zap.NewNop())
	f.svc = NewService(testStakingConfig(), memory.NewStakeStore(), f.ledger, notifier, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }

	if funded.IsPositive() {
		require.NoError(t, f.ledger.Mint(context.Background(), staker, funded))
	}
	return f
}

func (f *stakingFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestStake_MovesPrincipalToPool(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(10_000))

	position, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), false)
	require.NoError(t, err)
	assert.True(t, position.Amount.Equal(decimal.NewFromInt(6_000)))
	assert.Equal(t, 1, position.Tier)

	balance, err := f.ledger.BalanceOf(ctx, staker)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(4_000)))

	pool, err := f.ledger.BalanceOf(ctx, entities.SystemAccountStakingPool)
	require.NoError(t, err)
	assert.True(t, pool.Equal(decimal.NewFromInt(6_000)))
}

func TestStake_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(100))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientBalance, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindLimitExceeded, apperrors.KindOf(err))
}

func TestClaim_OneYearAtTierTwo(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(6_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), false)
	require.NoError(t, err)

	f.advance(365 * 24 * time.Hour)

	pending, err := f.svc.PendingReward(ctx, staker)
	require.NoError(t, err)
	assert.True(t, pending.Equal(decimal.NewFromInt(600)), "6000 at 10%% APR for a year yields 600, got %s", pending)

	reward, err := f.svc.Claim(ctx, staker)
	require.NoError(t, err)
	assert.True(t, reward.Equal(decimal.NewFromInt(600)))

	balance, err := f.ledger.BalanceOf(ctx, staker)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(600)), "reward is minted to the spendable balance")

	// The claim clock advanced; an immediate second claim pays nothing.
	pending, err = f.svc.PendingReward(ctx, staker)
	require.NoError(t, err)
	assert.True(t, pending.IsZero())
}

func TestClaim_RewardFloorsToWholeTokens(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(6_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), false)
	require.NoError(t, err)

	// Ten days at 10% APR on 6000 is ~16.44; the fraction is forfeited.
	f.advance(10 * 24 * time.Hour)

	pending, err := f.svc.PendingReward(ctx, staker)
	require.NoError(t, err)
	assert.True(t, pending.Equal(decimal.NewFromInt(16)), "got %s", pending)
}

func TestPendingReward_GrowsWithHoldingTime(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(6_000)

	accrualAfter := func(d time.Duration) decimal.Decimal {
		f := newStakingFixture(t, amount)
		_, err := f.svc.Stake(ctx, staker, amount, false)
		require.NoError(t, err)
		f.advance(d)
		pending, err := f.svc.PendingReward(ctx, staker)
		require.NoError(t, err)
		return pending
	}

	// Doubling the holding period can never shrink the accrual for the
	// same principal and tier.
	for _, days := range []int{1, 10, 90, 365} {
		short := accrualAfter(time.Duration(days) * 24 * time.Hour)
		long := accrualAfter(time.Duration(2*days) * 24 * time.Hour)
		assert.True(t, long.GreaterThanOrEqual(short),
			"%d days accrued %s but %d days accrued %s", 2*days, long, days, short)
	}
}

func TestStake_ClaimsBeforeTierChange(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(30_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), false)
	require.NoError(t, err)

	f.advance(365 * 24 * time.Hour)

	// Topping up to tier 2 must pay the accrued year at tier 1 rates first.
	position, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(20_000), false)
	require.NoError(t, err)
	assert.True(t, position.Amount.Equal(decimal.NewFromInt(26_000)))
	assert.Equal(t, 2, position.Tier)

	balance, err := f.ledger.BalanceOf(ctx, staker)
	require.NoError(t, err)
	// 30000 funded - 26000 staked + 600 claimed at the old tier.
	assert.True(t, balance.Equal(decimal.NewFromInt(4_600)), "got %s", balance)

	pending, err := f.svc.PendingReward(ctx, staker)
	require.NoError(t, err)
	assert.True(t, pending.IsZero(), "accrual restarts at the stake time")
}

func TestUnstake_LockedPositionRejected(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(6_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(6_000), true)
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	_, err = f.svc.Unstake(ctx, staker, decimal.NewFromInt(1_000))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStillLocked, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))

	f.advance(30 * 24 * time.Hour)
	position, err := f.svc.Unstake(ctx, staker, decimal.NewFromInt(1_000))
	require.NoError(t, err)
	assert.True(t, position.Amount.Equal(decimal.NewFromInt(5_000)))
}

func TestUnstake_MoreThanStaked(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(6_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(2_000), false)
	require.NoError(t, err)

	_, err = f.svc.Unstake(ctx, staker, decimal.NewFromInt(3_000))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientStake, apperrors.CodeOf(err))
}

func TestUnstake_ToZeroKeepsPosition(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.NewFromInt(2_000))

	_, err := f.svc.Stake(ctx, staker, decimal.NewFromInt(2_000), false)
	require.NoError(t, err)

	position, err := f.svc.Unstake(ctx, staker, decimal.NewFromInt(2_000))
	require.NoError(t, err)
	assert.True(t, position.Amount.IsZero())
	assert.Equal(t, entities.TierUnranked, position.Tier)
	assert.False(t, position.Locked)

	// The record survives at zero; claiming against it is a state conflict.
	_, err = f.svc.Claim(ctx, staker)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoStake, apperrors.CodeOf(err))
}

func TestClaim_NeverStaked(t *testing.T) {
	ctx := context.Background()
	f := newStakingFixture(t, decimal.Zero)

	_, err := f.svc.Claim(ctx, staker)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoStake, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}
