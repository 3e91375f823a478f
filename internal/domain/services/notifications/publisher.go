package notifications

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// Publisher emits append-only domain events for external listeners. Events
// are observational: nothing in the core reads them back, and a failed
// emission never fails the operation that produced it.
type Publisher interface {
	TradeFlagged(ctx context.Context, account entities.Address, reason string)
	RewardIssued(ctx context.Context, account entities.Address, amount decimal.Decimal)
	BonusProcessed(ctx context.Context, referrer, referred entities.Address, referrerBonus, referredBonus decimal.Decimal)
	TreasuryRebalanced(ctx context.Context, report *entities.RebalanceReport)
	BridgeInitiated(ctx context.Context, tx *entities.BridgeTransaction)
	BridgeCompleted(ctx context.Context, tx *entities.BridgeTransaction)
}

// LogPublisher writes events to the structured log stream, where external
// collectors pick them up by the event field.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-backed event publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) TradeFlagged(_ context.Context, account entities.Address, reason string) {
	p.logger.Info("event",
		zap.String("event", "trade_flagged"),
		zap.String("account", account.String()),
		zap.String("reason", reason))
}

func (p *LogPublisher) RewardIssued(_ context.Context, account entities.Address, amount decimal.Decimal) {
	p.logger.Info("event",
		zap.String("event", "reward_issued"),
		zap.String("account", account.String()),
		zap.String("amount", amount.String()))
}

func (p *LogPublisher) BonusProcessed(_ context.Context, referrer, referred entities.Address, referrerBonus, referredBonus decimal.Decimal) {
	p.logger.Info("event",
		zap.String("event", "bonus_processed"),
		zap.String("referrer", referrer.String()),
		zap.String("referred", referred.String()),
		zap.String("referrer_bonus", referrerBonus.String()),
		zap.String("referred_bonus", referredBonus.String()))
}

func (p *LogPublisher) TreasuryRebalanced(_ context.Context, report *entities.RebalanceReport) {
	p.logger.Info("event",
		zap.String("event", "treasury_rebalanced"),
		zap.String("token", report.Token),
		zap.String("total_value", report.TotalValue.String()),
		zap.String("total_yield", report.TotalYield.String()))
}

func (p *LogPublisher) BridgeInitiated(_ context.Context, tx *entities.BridgeTransaction) {
	p.logger.Info("event",
		zap.String("event", "bridge_initiated"),
		zap.String("id", tx.ID),
		zap.String("target_chain", tx.TargetChain),
		zap.String("sender", tx.Sender.String()),
		zap.String("amount", tx.Amount.String()))
}

func (p *LogPublisher) BridgeCompleted(_ context.Context, tx *entities.BridgeTransaction) {
	p.logger.Info("event",
		zap.String("event", "bridge_completed"),
		zap.String("id", tx.ID),
		zap.String("source_chain", tx.SourceChain),
		zap.String("recipient", tx.Recipient.String()),
		zap.String("amount", tx.Amount.String()))
}
