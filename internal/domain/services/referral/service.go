package referral

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

var hundred = decimal.NewFromInt(100)

// Repository defines persistence operations for the referral graph
type Repository interface {
	CreateRecord(ctx context.Context, record *entities.ReferralRecord) error
	GetRecord(ctx context.Context, referred entities.Address) (*entities.ReferralRecord, error)
	CountReferrals(ctx context.Context, referrer entities.Address) (int64, error)
	GetStats(ctx context.Context, referrer entities.Address) (*entities.ReferralStats, error)
	UpsertStats(ctx context.Context, stats *entities.ReferralStats) error
}

// Ledger is the slice of the account ledger the processor needs. Bonuses
// are new-supply issuance, never drawn from existing balances.
type Ledger interface {
	Mint(ctx context.Context, account entities.Address, amount decimal.Decimal) error
}

// Service maintains the one-level referral graph and issues bonuses on
// qualifying transfers.
type Service struct {
	repo     Repository
	ledger   Ledger
	notifier notifications.Publisher
	logger   *zap.Logger

	active           bool
	maxReferrals     int64
	minimumPurchase  decimal.Decimal
	referralBonusPct decimal.Decimal
	referredBonusPct decimal.Decimal
}

// NewService creates a referral service from configuration
func NewService(cfg config.ReferralConfig, repo Repository, ledger Ledger, notifier notifications.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:             repo,
		ledger:           ledger,
		notifier:         notifier,
		logger:           logger,
		active:           cfg.Active,
		maxReferrals:     cfg.MaxReferrals,
		minimumPurchase:  decimal.NewFromFloat(cfg.MinimumPurchase),
		referralBonusPct: decimal.NewFromFloat(cfg.ReferralBonusPct),
		referredBonusPct: decimal.NewFromFloat(cfg.ReferredBonusPct),
	}
}

// Register binds a referred account to its referrer. The binding is
// permanent: a second registration for the same referred account is a
// state conflict, whoever the new referrer would be.
func (s *Service) Register(ctx context.Context, referred, referrer entities.Address) error {
	if err := referrer.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidReferral,
			"referrer is not a valid account", err)
	}
	if err := referred.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidReferral,
			"referred is not a valid account", err)
	}
	if referred == referrer {
		return apperrors.E(apperrors.KindValidation, apperrors.CodeSelfReferral,
			"an account cannot refer itself")
	}

	existing, err := s.repo.GetRecord(ctx, referred)
	if err != nil {
		return fmt.Errorf("lookup referral record: %w", err)
	}
	if existing != nil {
		return apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeAlreadyRegistered,
			"account %s is already referred", referred)
	}

	count, err := s.repo.CountReferrals(ctx, referrer)
	if err != nil {
		return fmt.Errorf("count referrals: %w", err)
	}
	if count >= s.maxReferrals {
		return apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeReferralCapReached,
			"referrer %s already has %d referrals", referrer, count)
	}

	record := &entities.ReferralRecord{Referred: referred, Referrer: referrer}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return err
	}

	stats, err := s.loadStats(ctx, referrer)
	if err != nil {
		return err
	}
	stats.TotalReferrals++
	stats.ActiveReferrals++
	if err := s.repo.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("update referral stats: %w", err)
	}

	s.logger.Info("Referral registered",
		zap.String("referred", referred.String()),
		zap.String("referrer", referrer.String()))

	return nil
}

// ReferrerOf returns the referrer of an account, the zero address when
// the account has none.
func (s *Service) ReferrerOf(ctx context.Context, account entities.Address) (entities.Address, error) {
	record, err := s.repo.GetRecord(ctx, account)
	if err != nil {
		return entities.ZeroAddress, fmt.Errorf("lookup referral record: %w", err)
	}
	if record == nil {
		return entities.ZeroAddress, nil
	}
	return record.Referrer, nil
}

// StatsOf returns aggregate referral stats for a referrer
func (s *Service) StatsOf(ctx context.Context, referrer entities.Address) (*entities.ReferralStats, error) {
	return s.loadStats(ctx, referrer)
}

// ProcessBonus issues referral bonuses for a qualifying transfer. The
// amount is the gross pre-fee transfer amount. An inactive program, a
// sub-minimum amount or an unreferred account all make this a silent
// no-op, never an error.
func (s *Service) ProcessBonus(ctx context.Context, account entities.Address, amount decimal.Decimal) error {
	if !s.active || amount.LessThan(s.minimumPurchase) {
		return nil
	}

	record, err := s.repo.GetRecord(ctx, account)
	if err != nil {
		return fmt.Errorf("lookup referral record: %w", err)
	}
	if record == nil {
		return nil
	}

	referrerBonus := amount.Mul(s.referralBonusPct).Div(hundred)
	referredBonus := amount.Mul(s.referredBonusPct).Div(hundred)

	if err := s.ledger.Mint(ctx, record.Referrer, referrerBonus); err != nil {
		return fmt.Errorf("mint referrer bonus: %w", err)
	}
	if err := s.ledger.Mint(ctx, account, referredBonus); err != nil {
		return fmt.Errorf("mint referred bonus: %w", err)
	}

	stats, err := s.loadStats(ctx, record.Referrer)
	if err != nil {
		return err
	}
	stats.TotalBonus = stats.TotalBonus.Add(referrerBonus)
	stats.LastReferralTime = time.Now()
	if err := s.repo.UpsertStats(ctx, stats); err != nil {
		return fmt.Errorf("update referral stats: %w", err)
	}

	metrics.ReferralBonuses.Inc()
	s.notifier.BonusProcessed(ctx, record.Referrer, account, referrerBonus, referredBonus)

	return nil
}

func (s *Service) loadStats(ctx context.Context, referrer entities.Address) (*entities.ReferralStats, error) {
	stats, err := s.repo.GetStats(ctx, referrer)
	if err != nil {
		return nil, fmt.Errorf("load referral stats: %w", err)
	}
	if stats == nil {
		stats = entities.NewReferralStats(referrer)
	}
	return stats, nil
}
