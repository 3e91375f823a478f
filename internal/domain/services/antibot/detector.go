package antibot

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

// Repository defines persistence operations for trading patterns
type Repository interface {
	Get(ctx context.Context, account entities.Address) (*entities.TradingPattern, error)
	Upsert(ctx context.Context, pattern *entities.TradingPattern) error
	ListFlagged(ctx context.Context) ([]*entities.TradingPattern, error)
}

// Assessment is the staged outcome of evaluating one trade. Nothing is
// persisted until Commit, so a transfer that fails to settle leaves the
// account's pattern untouched.
type Assessment struct {
	pattern       *entities.TradingPattern
	prevTradeTime time.Time
	newlyFlagged  bool
}

// PreviousTradeTime returns the account's trade time before this trade,
// zero on a first trade.
func (a *Assessment) PreviousTradeTime() time.Time {
	return a.prevTradeTime
}

// Flagged reports whether the account is flagged after this trade
func (a *Assessment) Flagged() bool {
	return a.pattern.Flagged
}

// FlagReason returns the reason recorded at flag time
func (a *Assessment) FlagReason() string {
	return a.pattern.FlagReason
}

// Detector maintains per-account trading statistics and classifies each
// trade against rapid-trading, size-variance and contract-origin rules.
// An account moves Unobserved to Normal on first trade and to Flagged when
// a rule fires; there is no path back.
type Detector struct {
	repo     Repository
	notifier notifications.Publisher
	logger   *zap.Logger

	maxBuyAmount     decimal.Decimal
	maxSellAmount    decimal.Decimal
	cooldown         time.Duration
	burstTradeCount  int64
	varianceMultiple decimal.Decimal
	contractAccounts map[entities.Address]bool
	allowList        map[entities.Address]bool
}

// NewDetector creates a detector from configuration
func NewDetector(cfg config.AntiBotConfig, repo Repository, notifier notifications.Publisher, logger *zap.Logger) *Detector {
	contracts := make(map[entities.Address]bool, len(cfg.ContractAccounts))
	for _, a := range cfg.ContractAccounts {
		contracts[entities.Address(a)] = true
	}
	allowed := make(map[entities.Address]bool, len(cfg.ContractAllowList))
	for _, a := range cfg.ContractAllowList {
		allowed[entities.Address(a)] = true
	}

	return &Detector{
		repo:             repo,
		notifier:         notifier,
		logger:           logger,
		maxBuyAmount:     decimal.NewFromFloat(cfg.MaxBuyAmount),
		maxSellAmount:    decimal.NewFromFloat(cfg.MaxSellAmount),
		cooldown:         time.Duration(cfg.CooldownSecs) * time.Second,
		burstTradeCount:  cfg.BurstTradeCount,
		varianceMultiple: decimal.NewFromFloat(cfg.VarianceMultiple),
		contractAccounts: contracts,
		allowList:        allowed,
	}
}

// IsFlagged reports whether an account has been flagged
func (d *Detector) IsFlagged(ctx context.Context, account entities.Address) (bool, error) {
	pattern, err := d.repo.Get(ctx, account)
	if err != nil {
		return false, fmt.Errorf("load pattern: %w", err)
	}
	return pattern != nil && pattern.Flagged, nil
}

// ListFlagged retrieves all flagged accounts
func (d *Detector) ListFlagged(ctx context.Context) ([]*entities.TradingPattern, error) {
	return d.repo.ListFlagged(ctx)
}

// Evaluate records a trade against the account's pattern without
// persisting anything. It rejects with a limit error when the cumulative
// per-direction amount would exceed its ceiling; otherwise it updates the
// staged counters, runs classification against the prior trade time, and
// advances the trade time last.
func (d *Detector) Evaluate(ctx context.Context, account, counterparty entities.Address, amount decimal.Decimal, isBuy bool, now time.Time) (*Assessment, error) {
	pattern, err := d.repo.Get(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load pattern: %w", err)
	}
	if pattern == nil {
		pattern = entities.NewTradingPattern(account, now)
	}

	if isBuy {
		if d.maxBuyAmount.IsPositive() && pattern.TotalBuyAmount.Add(amount).GreaterThan(d.maxBuyAmount) {
			return nil, apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeTradingLimitExceeded,
				"cumulative buy amount for %s would exceed %s", account, d.maxBuyAmount.String())
		}
		pattern.BuyCount++
		pattern.TotalBuyAmount = pattern.TotalBuyAmount.Add(amount)
	} else {
		if d.maxSellAmount.IsPositive() && pattern.TotalSellAmount.Add(amount).GreaterThan(d.maxSellAmount) {
			return nil, apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeTradingLimitExceeded,
				"cumulative sell amount for %s would exceed %s", account, d.maxSellAmount.String())
		}
		pattern.SellCount++
		pattern.TotalSellAmount = pattern.TotalSellAmount.Add(amount)
	}

	wasFlagged := pattern.Flagged
	prevTradeTime := pattern.LastTradeTime
	d.classify(pattern, counterparty, now)

	// Classification reads the previous trade time, so the stamp comes
	// after it.
	pattern.LastTradeTime = now

	return &Assessment{
		pattern:       pattern,
		prevTradeTime: prevTradeTime,
		newlyFlagged:  pattern.Flagged && !wasFlagged,
	}, nil
}

// Commit persists a staged assessment and emits the flag notification if
// this trade tripped a rule.
func (d *Detector) Commit(ctx context.Context, assessment *Assessment) error {
	if err := d.repo.Upsert(ctx, assessment.pattern); err != nil {
		return fmt.Errorf("persist pattern: %w", err)
	}

	if assessment.newlyFlagged {
		p := assessment.pattern
		metrics.AccountsFlagged.WithLabelValues(p.FlagReason).Inc()
		d.notifier.TradeFlagged(ctx, p.Account, p.FlagReason)
		d.logger.Warn("Account flagged",
			zap.String("account", p.Account.String()),
			zap.String("reason", p.FlagReason),
			zap.Int64("trade_count", p.TradeCount()))
	}

	return nil
}

const (
	reasonRapidTrading   = "rapid_trading"
	reasonSizeVariance   = "size_variance"
	reasonContractOrigin = "contract_origin"
)

func (d *Detector) classify(pattern *entities.TradingPattern, counterparty entities.Address, now time.Time) {
	if pattern.Flagged {
		return
	}

	if d.contractAccounts[counterparty] && !d.allowList[counterparty] {
		pattern.Flag(reasonContractOrigin)
		return
	}

	if !pattern.LastTradeTime.IsZero() &&
		now.Sub(pattern.LastTradeTime) < d.cooldown &&
		pattern.TradeCount() > d.burstTradeCount {
		pattern.Flag(reasonRapidTrading)
		return
	}

	if pattern.BuyCount > 0 && pattern.SellCount > 0 {
		avgBuy := pattern.AverageBuySize()
		avgSell := pattern.AverageSellSize()
		larger, smaller := avgBuy, avgSell
		if avgSell.GreaterThan(avgBuy) {
			larger, smaller = avgSell, avgBuy
		}
		if smaller.IsPositive() && larger.Div(smaller).GreaterThan(d.varianceMultiple) {
			pattern.Flag(reasonSizeVariance)
		}
	}
}
