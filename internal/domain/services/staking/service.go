package staking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

const secondsPerYear = 365 * 24 * 3600

var hundred = decimal.NewFromInt(100)

// Repository defines persistence operations for stake positions
type Repository interface {
	Get(ctx context.Context, account entities.Address) (*entities.StakePosition, error)
	Upsert(ctx context.Context, position *entities.StakePosition) error
}

// Ledger is the slice of the account ledger the staking service needs.
// Staked principal moves between the account and the staking pool;
// rewards are minted as new supply.
type Ledger interface {
	BalanceOf(ctx context.Context, account entities.Address) (decimal.Decimal, error)
	Transfer(ctx context.Context, req *entities.LedgerApplyRequest) error
	Mint(ctx context.Context, account entities.Address, amount decimal.Decimal) error
}

// Service maintains per-account stake positions and pays time-weighted
// rewards. Rewards are linear in elapsed time: claiming before every
// position change keeps a tier change from diluting or double counting
// accrual.
type Service struct {
	repo     Repository
	ledger   Ledger
	notifier notifications.Publisher
	logger   *zap.Logger

	tiers      entities.TierTable
	lockPeriod time.Duration
	now        func() time.Time
}

// NewService creates a staking service from configuration
func NewService(cfg config.StakingConfig, repo Repository, ledger Ledger, notifier notifications.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		notifier:   notifier,
		logger:     logger,
		tiers:      cfg.TierTable(),
		lockPeriod: cfg.LockPeriod(),
		now:        time.Now,
	}
}

// PositionOf returns the stake position for an account, nil when the
// account has never staked.
func (s *Service) PositionOf(ctx context.Context, account entities.Address) (*entities.StakePosition, error) {
	return s.repo.Get(ctx, account)
}

// Stake moves amount from the account's spendable balance into its stake
// position. Any pending reward on an existing position is claimed first,
// then the tier is recomputed against the new total and the clocks reset.
func (s *Service) Stake(ctx context.Context, account entities.Address, amount decimal.Decimal, lock bool) (*entities.StakePosition, error) {
	if err := account.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidAddress, "invalid account", err)
	}
	if !amount.IsPositive() {
		return nil, apperrors.E(apperrors.KindValidation, apperrors.CodeInvalidAmount, "stake amount must be positive")
	}

	balance, err := s.ledger.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if balance.LessThan(amount) {
		return nil, apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeInsufficientBalance,
			"spendable balance %s is below stake amount %s", balance.String(), amount.String())
	}

	position, err := s.repo.Get(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}

	now := s.now()
	if position == nil {
		position = &entities.StakePosition{
			Account: account,
			Amount:  decimal.Zero,
			Tier:    entities.TierUnranked,
		}
	} else if position.Amount.IsPositive() {
		if err := s.payReward(ctx, position, now); err != nil {
			return nil, err
		}
	}

	move := &entities.LedgerApplyRequest{
		Reference: fmt.Sprintf("stake:%s", account),
		Movements: []entities.Movement{
			{Account: account, Type: entities.MovementDebit, Amount: amount},
			{Account: entities.SystemAccountStakingPool, Type: entities.MovementCredit, Amount: amount},
		},
	}
	if err := s.ledger.Transfer(ctx, move); err != nil {
		return nil, fmt.Errorf("move stake principal: %w", err)
	}

	position.Amount = position.Amount.Add(amount)
	position.Tier = s.tiers.TierFor(position.Amount)
	position.StartTime = now
	position.LastRewardClaimTime = now
	position.Locked = lock

	if err := s.repo.Upsert(ctx, position); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	s.logger.Info("Stake added",
		zap.String("account", account.String()),
		zap.String("amount", amount.String()),
		zap.Int("tier", position.Tier),
		zap.Bool("locked", lock))

	return position, nil
}

// Unstake returns amount from the stake position to the account's
// spendable balance, claiming any pending reward first.
func (s *Service) Unstake(ctx context.Context, account entities.Address, amount decimal.Decimal) (*entities.StakePosition, error) {
	if !amount.IsPositive() {
		return nil, apperrors.E(apperrors.KindValidation, apperrors.CodeInvalidAmount, "unstake amount must be positive")
	}

	position, err := s.repo.Get(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	if position == nil || position.Amount.LessThan(amount) {
		return nil, apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeInsufficientStake,
			"unstake amount %s exceeds staked amount", amount.String())
	}

	now := s.now()
	if position.Locked && now.Before(position.LockExpiry(s.lockPeriod)) {
		return nil, apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeStillLocked,
			"position is locked until %s", position.LockExpiry(s.lockPeriod).Format(time.RFC3339))
	}

	if err := s.payReward(ctx, position, now); err != nil {
		return nil, err
	}

	move := &entities.LedgerApplyRequest{
		Reference: fmt.Sprintf("unstake:%s", account),
		Movements: []entities.Movement{
			{Account: entities.SystemAccountStakingPool, Type: entities.MovementDebit, Amount: amount},
			{Account: account, Type: entities.MovementCredit, Amount: amount},
		},
	}
	if err := s.ledger.Transfer(ctx, move); err != nil {
		return nil, fmt.Errorf("return stake principal: %w", err)
	}

	position.Amount = position.Amount.Sub(amount)
	position.Tier = s.tiers.TierFor(position.Amount)
	if position.Amount.IsZero() {
		position.Locked = false
	}

	if err := s.repo.Upsert(ctx, position); err != nil {
		return nil, fmt.Errorf("persist position: %w", err)
	}

	s.logger.Info("Stake withdrawn",
		zap.String("account", account.String()),
		zap.String("amount", amount.String()),
		zap.String("remaining", position.Amount.String()),
		zap.Int("tier", position.Tier))

	return position, nil
}

// Claim mints the pending reward for an account and advances the claim
// clock. The position amount is unchanged.
func (s *Service) Claim(ctx context.Context, account entities.Address) (decimal.Decimal, error) {
	position, err := s.repo.Get(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load position: %w", err)
	}
	if position == nil || position.Amount.IsZero() {
		return decimal.Zero, apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeNoStake,
			"account %s has nothing staked", account)
	}

	reward, err := s.claimReward(ctx, position, s.now())
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.Upsert(ctx, position); err != nil {
		return decimal.Zero, fmt.Errorf("persist position: %w", err)
	}
	return reward, nil
}

// PendingReward previews the reward a claim would mint right now
func (s *Service) PendingReward(ctx context.Context, account entities.Address) (decimal.Decimal, error) {
	position, err := s.repo.Get(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load position: %w", err)
	}
	if position == nil {
		return decimal.Zero, nil
	}
	return s.rewardFor(position, s.now()), nil
}

// payReward claims inside stake and unstake flows, where a zero reward is
// normal and the caller persists the position afterwards.
func (s *Service) payReward(ctx context.Context, position *entities.StakePosition, now time.Time) error {
	_, err := s.claimReward(ctx, position, now)
	return err
}

func (s *Service) claimReward(ctx context.Context, position *entities.StakePosition, now time.Time) (decimal.Decimal, error) {
	reward := s.rewardFor(position, now)
	position.LastRewardClaimTime = now

	if !reward.IsPositive() {
		return decimal.Zero, nil
	}

	if err := s.ledger.Mint(ctx, position.Account, reward); err != nil {
		return decimal.Zero, fmt.Errorf("mint reward: %w", err)
	}

	metrics.RewardsMinted.Add(reward.InexactFloat64())
	s.notifier.RewardIssued(ctx, position.Account, reward)
	s.logger.Info("Reward claimed",
		zap.String("account", position.Account.String()),
		zap.String("reward", reward.String()),
		zap.Int("tier", position.Tier))

	return reward, nil
}

// rewardFor computes amount x APR x elapsed / (secondsPerYear x 100),
// truncated to the whole-token floor. Dust below the floor is forfeited.
func (s *Service) rewardFor(position *entities.StakePosition, now time.Time) decimal.Decimal {
	if !position.Amount.IsPositive() || position.Tier == entities.TierUnranked {
		return decimal.Zero
	}

	elapsed := now.Sub(position.LastRewardClaimTime)
	if elapsed <= 0 {
		return decimal.Zero
	}

	apr := s.tiers.APRFor(position.Tier)
	elapsedSecs := decimal.NewFromInt(int64(elapsed / time.Second))
	denominator := decimal.NewFromInt(secondsPerYear).Mul(hundred)

	return position.Amount.Mul(apr).Mul(elapsedSecs).Div(denominator).Floor()
}
