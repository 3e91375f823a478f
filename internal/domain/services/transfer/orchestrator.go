package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/antibot"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

// Detector is the anti-bot surface the pipeline consumes
type Detector interface {
	IsFlagged(ctx context.Context, account entities.Address) (bool, error)
	Evaluate(ctx context.Context, account, counterparty entities.Address, amount decimal.Decimal, isBuy bool, now time.Time) (*antibot.Assessment, error)
	Commit(ctx context.Context, assessment *antibot.Assessment) error
}

// FeeEngine prices a transfer
type FeeEngine interface {
	ComputeRate(amount decimal.Decimal, market entities.MarketState, lastTrade, now time.Time) decimal.Decimal
	FeeFor(amount, rate decimal.Decimal) (fee, net decimal.Decimal)
}

// Ledger settles balanced movement groups atomically
type Ledger interface {
	Transfer(ctx context.Context, req *entities.LedgerApplyRequest) error
}

// BonusProcessor issues referral bonuses on qualifying transfers
type BonusProcessor interface {
	ProcessBonus(ctx context.Context, account entities.Address, amount decimal.Decimal) error
}

// VolumeTracker feeds trailing-volume market data and absorbs settled
// trade volume
type VolumeTracker interface {
	Record(amount decimal.Decimal)
	TrailingHour() decimal.Decimal
}

// Transaction is the working state a transfer accumulates as it moves
// through the pipeline
type Transaction struct {
	Request    *entities.TransferRequest
	IsBuy      bool
	Market     entities.MarketState
	Assessment *antibot.Assessment
	FeeRate    decimal.Decimal
	FeeAmount  decimal.Decimal
	NetAmount  decimal.Decimal
	Now        time.Time
}

// Stage is one step of the transfer pipeline. Stages run in a fixed
// order set at construction; each may reject the transfer or adjust the
// transaction state for later stages.
type Stage interface {
	Name() string
	Execute(ctx context.Context, txn *Transaction) error
}

// Orchestrator sequences every value transfer through the economic
// pipeline: flag screening, admission control, pattern recording, fee
// pricing, atomic settlement, referral bonus, analytics and pattern
// commit. Stage order is load-bearing: fee and bonus are both computed
// from the gross pre-fee amount, and pattern writes land only after
// settlement succeeds.
//
// Settlement is the atomicity boundary. Any stage up to and including
// settlement rejects the transfer with no balance movement; once the
// ledger has applied the movements, the transfer is settled and the
// follow-up bookkeeping stages cannot unwind it.
type Orchestrator struct {
	stages   []Stage
	followup []Stage
	logger   *zap.Logger
}

// NewOrchestrator wires the canonical pipeline
func NewOrchestrator(cfg config.FeeConfig, detector Detector, engine FeeEngine, ledger Ledger, bonuses BonusProcessor, volume VolumeTracker, logger *zap.Logger) *Orchestrator {
	poolAddress := entities.Address(cfg.PoolAddress)
	maxPriorityFee := decimal.NewFromFloat(cfg.MaxPriorityFee)
	defaultPoolDepth := decimal.NewFromFloat(cfg.DefaultPoolDepth)

	return &Orchestrator{
		logger: logger,
		stages: []Stage{
			&flagGuardStage{detector: detector},
			&admissionStage{maxPriorityFee: maxPriorityFee},
			&patternStage{detector: detector, poolAddress: poolAddress},
			&feeStage{engine: engine, volume: volume, poolDepth: defaultPoolDepth},
			&settlementStage{ledger: ledger},
		},
		followup: []Stage{
			&bonusStage{bonuses: bonuses},
			&analyticsStage{volume: volume},
			&commitStage{detector: detector},
		},
	}
}

// Transfer runs a request through the pipeline and returns the settlement
// receipt
func (o *Orchestrator) Transfer(ctx context.Context, req *entities.TransferRequest) (*entities.TransferReceipt, error) {
	if err := req.Validate(); err != nil {
		metrics.TransfersTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidAmount, "invalid transfer request", err)
	}

	txn := &Transaction{Request: req, Now: time.Now()}
	for _, stage := range o.stages {
		if err := stage.Execute(ctx, txn); err != nil {
			metrics.TransfersTotal.WithLabelValues("rejected").Inc()
			o.logger.Debug("Transfer rejected",
				zap.String("stage", stage.Name()),
				zap.String("sender", req.Sender.String()),
				zap.String("recipient", req.Recipient.String()),
				zap.Error(err))
			return nil, err
		}
	}

	// The balances have moved; a failed follow-up must not surface as a
	// rejection of a settled transfer.
	for _, stage := range o.followup {
		if err := stage.Execute(ctx, txn); err != nil {
			metrics.TransfersTotal.WithLabelValues("followup_failed").Inc()
			o.logger.Warn("Post-settlement stage failed",
				zap.String("stage", stage.Name()),
				zap.String("sender", req.Sender.String()),
				zap.String("recipient", req.Recipient.String()),
				zap.Error(err))
		}
	}

	metrics.TransfersTotal.WithLabelValues("settled").Inc()
	metrics.FeesCollected.Add(txn.FeeAmount.InexactFloat64())
	o.logger.Info("Transfer settled",
		zap.String("sender", req.Sender.String()),
		zap.String("recipient", req.Recipient.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("fee", txn.FeeAmount.String()),
		zap.Bool("is_buy", txn.IsBuy))

	return &entities.TransferReceipt{
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		FeeRate:   txn.FeeRate,
		FeeAmount: txn.FeeAmount,
		NetAmount: txn.NetAmount,
		IsBuy:     txn.IsBuy,
		SettledAt: txn.Now,
	}, nil
}

// flagGuardStage rejects transfers touching a flagged account, as sender
// or as recipient
type flagGuardStage struct {
	detector Detector
}

func (s *flagGuardStage) Name() string { return "flag_guard" }

func (s *flagGuardStage) Execute(ctx context.Context, txn *Transaction) error {
	for _, party := range []entities.Address{txn.Request.Sender, txn.Request.Recipient} {
		flagged, err := s.detector.IsFlagged(ctx, party)
		if err != nil {
			return fmt.Errorf("flag check: %w", err)
		}
		if flagged {
			return apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeAccountFlagged,
				"account %s is flagged", party)
		}
	}
	return nil
}

// admissionStage rejects calls whose priority fee exceeds the configured
// ceiling, blunting front-running by fee escalation. A zero ceiling
// disables the guard.
type admissionStage struct {
	maxPriorityFee decimal.Decimal
}

func (s *admissionStage) Name() string { return "admission" }

func (s *admissionStage) Execute(_ context.Context, txn *Transaction) error {
	if s.maxPriorityFee.IsPositive() && txn.Request.PriorityFee.GreaterThan(s.maxPriorityFee) {
		return apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodePriorityTooHigh,
			"priority fee %s exceeds ceiling %s", txn.Request.PriorityFee.String(), s.maxPriorityFee.String())
	}
	return nil
}

// patternStage classifies direction and stages the anti-bot bookkeeping.
// Nothing is persisted here; commitStage lands the pattern after
// settlement succeeds.
type patternStage struct {
	detector    Detector
	poolAddress entities.Address
}

func (s *patternStage) Name() string { return "pattern" }

func (s *patternStage) Execute(ctx context.Context, txn *Transaction) error {
	txn.IsBuy = !s.poolAddress.IsZero() && txn.Request.Recipient == s.poolAddress

	assessment, err := s.detector.Evaluate(ctx, txn.Request.Sender, txn.Request.Recipient, txn.Request.Amount, txn.IsBuy, txn.Now)
	if err != nil {
		return err
	}
	txn.Assessment = assessment
	return nil
}

// feeStage snapshots market state and prices the transfer
type feeStage struct {
	engine    FeeEngine
	volume    VolumeTracker
	poolDepth decimal.Decimal
}

func (s *feeStage) Name() string { return "fee" }

func (s *feeStage) Execute(_ context.Context, txn *Transaction) error {
	txn.Market = entities.MarketState{
		TrailingHourVolume: s.volume.TrailingHour(),
		PoolDepth:          s.poolDepth,
		LastTradeTime:      txn.Assessment.PreviousTradeTime(),
	}

	txn.FeeRate = s.engine.ComputeRate(txn.Request.Amount, txn.Market, txn.Assessment.PreviousTradeTime(), txn.Now)
	txn.FeeAmount, txn.NetAmount = s.engine.FeeFor(txn.Request.Amount, txn.FeeRate)
	return nil
}

// settlementStage commits the three balance movements atomically: the
// sender loses exactly the gross amount, split between fee pool and
// recipient
type settlementStage struct {
	ledger Ledger
}

func (s *settlementStage) Name() string { return "settlement" }

func (s *settlementStage) Execute(ctx context.Context, txn *Transaction) error {
	req := &entities.LedgerApplyRequest{
		Reference: fmt.Sprintf("transfer:%s:%s", txn.Request.Sender, txn.Request.Recipient),
		Movements: []entities.Movement{
			{Account: txn.Request.Sender, Type: entities.MovementDebit, Amount: txn.Request.Amount},
			{Account: entities.SystemAccountFeePool, Type: entities.MovementCredit, Amount: txn.FeeAmount},
			{Account: txn.Request.Recipient, Type: entities.MovementCredit, Amount: txn.NetAmount},
		},
	}
	return s.ledger.Transfer(ctx, req)
}

// bonusStage issues referral bonuses on the gross pre-fee amount
type bonusStage struct {
	bonuses BonusProcessor
}

func (s *bonusStage) Name() string { return "bonus" }

func (s *bonusStage) Execute(ctx context.Context, txn *Transaction) error {
	if err := s.bonuses.ProcessBonus(ctx, txn.Request.Recipient, txn.Request.Amount); err != nil {
		return fmt.Errorf("process bonus: %w", err)
	}
	return nil
}

// analyticsStage feeds the settled volume into the rolling window
type analyticsStage struct {
	volume VolumeTracker
}

func (s *analyticsStage) Name() string { return "analytics" }

func (s *analyticsStage) Execute(_ context.Context, txn *Transaction) error {
	s.volume.Record(txn.Request.Amount)
	return nil
}

// commitStage persists the staged anti-bot pattern, including the trade
// time advance, once the transfer has settled
type commitStage struct {
	detector Detector
}

func (s *commitStage) Name() string { return "commit" }

func (s *commitStage) Execute(ctx context.Context, txn *Transaction) error {
	return s.detector.Commit(ctx, txn.Assessment)
}
