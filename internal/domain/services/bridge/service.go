package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/cache"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

// Adapter is the external capability that carries value to another chain.
// One adapter is registered per supported chain and is the only caller
// allowed to complete inbound transfers from that chain.
type Adapter interface {
	Dispatch(ctx context.Context, targetChain string, recipient entities.Address, amount decimal.Decimal) error
}

// Repository defines persistence operations for bridge transactions
type Repository interface {
	Create(ctx context.Context, tx *entities.BridgeTransaction) error
	Get(ctx context.Context, id string) (*entities.BridgeTransaction, error)
	MarkProcessed(ctx context.Context, id string) error
	ListBySender(ctx context.Context, sender entities.Address, limit int) ([]*entities.BridgeTransaction, error)
	NextNonce(ctx context.Context) (uint64, error)
}

// Ledger is the slice of the account ledger the bridge needs. Outbound
// value moves into custody; inbound value is minted, mirroring the burn
// on the source chain.
type Ledger interface {
	Transfer(ctx context.Context, req *entities.LedgerApplyRequest) error
	Mint(ctx context.Context, account entities.Address, amount decimal.Decimal) error
}

type registeredAdapter struct {
	adapter Adapter
	key     string
}

// Service records cross-chain transfers with exactly-once settlement.
// Outbound and inbound are separately guarded entry points: adapter calls
// can re-enter the service, and a nested entry fails fast.
type Service struct {
	repo     Repository
	ledger   Ledger
	cache    cache.RedisClient
	notifier notifications.Publisher
	logger   *zap.Logger

	chainName string
	minAmount decimal.Decimal
	cooldown  time.Duration
	supported map[string]bool

	outboundGuard sync.Mutex
	inboundGuard  sync.Mutex

	adaptersMu sync.RWMutex
	adapters   map[string]registeredAdapter
}

// NewService creates a bridge service from configuration
func NewService(cfg config.BridgeConfig, repo Repository, ledger Ledger, cacheClient cache.RedisClient, notifier notifications.Publisher, logger *zap.Logger) *Service {
	supported := make(map[string]bool, len(cfg.SupportedChains))
	for _, chain := range cfg.SupportedChains {
		supported[chain] = true
	}

	return &Service{
		repo:      repo,
		ledger:    ledger,
		cache:     cacheClient,
		notifier:  notifier,
		logger:    logger,
		chainName: cfg.ChainName,
		minAmount: decimal.NewFromFloat(cfg.MinAmount),
		cooldown:  time.Duration(cfg.CooldownSecs) * time.Second,
		supported: supported,
		adapters:  make(map[string]registeredAdapter),
	}
}

// RegisterAdapter binds a chain's adapter and its authorization key. The
// chain becomes supported when its adapter is registered.
func (s *Service) RegisterAdapter(chain string, adapter Adapter, key string) {
	s.adaptersMu.Lock()
	defer s.adaptersMu.Unlock()
	s.adapters[chain] = registeredAdapter{adapter: adapter, key: key}
	s.supported[chain] = true
}

func (s *Service) adapterFor(chain string) (registeredAdapter, bool) {
	s.adaptersMu.RLock()
	defer s.adaptersMu.RUnlock()
	reg, ok := s.adapters[chain]
	return reg, ok
}

func (s *Service) isSupported(chain string) bool {
	s.adaptersMu.RLock()
	defer s.adaptersMu.RUnlock()
	return s.supported[chain]
}

// Transaction returns a bridge transaction by id, nil when unknown
func (s *Service) Transaction(ctx context.Context, id string) (*entities.BridgeTransaction, error) {
	return s.repo.Get(ctx, id)
}

// History returns a sender's bridge transactions, newest first
func (s *Service) History(ctx context.Context, sender entities.Address, limit int) ([]*entities.BridgeTransaction, error) {
	return s.repo.ListBySender(ctx, sender, limit)
}

// InitiateBridge debits the sender into custody and records an outbound
// transfer, then hands it to the target chain's adapter. The record and
// the debit are committed before the adapter runs, so a dispatch failure
// leaves a pending transaction to re-dispatch rather than lost funds.
func (s *Service) InitiateBridge(ctx context.Context, sender entities.Address, targetChain string, recipient entities.Address, amount decimal.Decimal) (*entities.BridgeTransaction, error) {
	if !s.outboundGuard.TryLock() {
		return nil, apperrors.E(apperrors.KindStateConflict, apperrors.CodeOperationInProgress,
			"an outbound bridge operation is already in progress")
	}
	defer s.outboundGuard.Unlock()

	if err := sender.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidAddress, "invalid sender", err)
	}
	if err := recipient.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidAddress, "invalid recipient", err)
	}
	if amount.LessThan(s.minAmount) {
		return nil, apperrors.Ef(apperrors.KindValidation, apperrors.CodeAmountTooLow,
			"bridge amount %s is below minimum %s", amount.String(), s.minAmount.String())
	}

	reg, ok := s.adapterFor(targetChain)
	if !ok || !s.isSupported(targetChain) {
		return nil, apperrors.Ef(apperrors.KindValidation, apperrors.CodeUnsupportedChain,
			"chain %s is not supported", targetChain)
	}

	active, err := s.cache.Exists(ctx, cooldownKey(sender))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeAdapterFailure,
			"cooldown check failed", err)
	}
	if active {
		return nil, apperrors.Ef(apperrors.KindTooSoon, apperrors.CodeCooldownActive,
			"sender %s bridged within the last %s", sender, s.cooldown)
	}

	nonce, err := s.repo.NextNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("advance nonce: %w", err)
	}

	tx := &entities.BridgeTransaction{
		ID:          entities.OutboundBridgeID(s.chainName, sender, recipient, amount, nonce),
		SourceChain: s.chainName,
		TargetChain: targetChain,
		Sender:      sender,
		Recipient:   recipient,
		Amount:      amount,
		Timestamp:   time.Now(),
		Status:      entities.BridgeStatusPending,
	}

	custody := &entities.LedgerApplyRequest{
		Reference: fmt.Sprintf("bridge:%s", tx.ID),
		Movements: []entities.Movement{
			{Account: sender, Type: entities.MovementDebit, Amount: amount},
			{Account: entities.SystemAccountBridgeCustody, Type: entities.MovementCredit, Amount: amount},
		},
	}
	if err := s.ledger.Transfer(ctx, custody); err != nil {
		return nil, fmt.Errorf("move funds to custody: %w", err)
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("record bridge transaction: %w", err)
	}

	// The cooldown is stamped only once the transfer is committed, so a
	// rejected call never consumes the sender's window.
	if _, err := s.cache.SetNX(ctx, cooldownKey(sender), time.Now().Unix(), s.cooldown); err != nil {
		s.logger.Warn("Failed to stamp bridge cooldown", zap.String("sender", sender.String()), zap.Error(err))
	}

	metrics.BridgeTransfers.WithLabelValues("outbound", "initiated").Inc()
	s.notifier.BridgeInitiated(ctx, tx)
	s.logger.Info("Bridge transfer initiated",
		zap.String("id", tx.ID),
		zap.String("target_chain", targetChain),
		zap.String("sender", sender.String()),
		zap.String("amount", amount.String()))

	// State is fully committed; the adapter call happens last so a
	// re-entry or failure cannot unwind the custody move.
	if err := reg.adapter.Dispatch(ctx, targetChain, recipient, amount); err != nil {
		metrics.BridgeTransfers.WithLabelValues("outbound", "dispatch_failed").Inc()
		return tx, apperrors.Wrap(apperrors.KindExternalFailure, apperrors.CodeAdapterFailure,
			fmt.Sprintf("dispatch to %s failed, transaction %s remains pending", targetChain, tx.ID), err)
	}

	return tx, nil
}

// CompleteBridge settles an inbound transfer by minting to the recipient.
// The transaction id derives from the settlement tuple, so a duplicate
// delivery finds the processed record and returns it unchanged: the
// recipient is credited exactly once.
func (s *Service) CompleteBridge(ctx context.Context, sourceChain string, recipient entities.Address, amount decimal.Decimal, proof []byte, adapterKey string) (*entities.BridgeTransaction, error) {
	if !s.inboundGuard.TryLock() {
		return nil, apperrors.E(apperrors.KindStateConflict, apperrors.CodeOperationInProgress,
			"an inbound bridge operation is already in progress")
	}
	defer s.inboundGuard.Unlock()

	if !s.isSupported(sourceChain) {
		return nil, apperrors.Ef(apperrors.KindValidation, apperrors.CodeUnsupportedChain,
			"chain %s is not supported", sourceChain)
	}

	reg, ok := s.adapterFor(sourceChain)
	if !ok || reg.key != adapterKey {
		return nil, apperrors.Ef(apperrors.KindUnauthorized, apperrors.CodeUnauthorizedAdapter,
			"caller is not the registered adapter for %s", sourceChain)
	}

	if err := recipient.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, apperrors.CodeInvalidAddress, "invalid recipient", err)
	}
	if !amount.IsPositive() {
		return nil, apperrors.E(apperrors.KindValidation, apperrors.CodeInvalidAmount, "bridge amount must be positive")
	}

	id := entities.InboundBridgeID(sourceChain, recipient, amount, proof)

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup bridge transaction: %w", err)
	}
	if existing != nil && existing.Processed() {
		metrics.BridgeTransfers.WithLabelValues("inbound", "replayed").Inc()
		s.logger.Debug("Bridge completion replayed", zap.String("id", id))
		return existing, nil
	}

	if existing == nil {
		existing = &entities.BridgeTransaction{
			ID:          id,
			SourceChain: sourceChain,
			TargetChain: s.chainName,
			Recipient:   recipient,
			Amount:      amount,
			Timestamp:   time.Now(),
			Status:      entities.BridgeStatusPending,
		}
		if err := s.repo.Create(ctx, existing); err != nil {
			return nil, fmt.Errorf("record bridge transaction: %w", err)
		}
	}

	if err := s.ledger.Mint(ctx, recipient, amount); err != nil {
		return nil, fmt.Errorf("mint to recipient: %w", err)
	}
	if err := s.repo.MarkProcessed(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}
	existing.Status = entities.BridgeStatusProcessed

	metrics.BridgeTransfers.WithLabelValues("inbound", "completed").Inc()
	s.notifier.BridgeCompleted(ctx, existing)
	s.logger.Info("Bridge transfer completed",
		zap.String("id", existing.ID),
		zap.String("source_chain", sourceChain),
		zap.String("recipient", recipient.String()),
		zap.String("amount", amount.String()))

	return existing, nil
}

func cooldownKey(sender entities.Address) string {
	return fmt.Sprintf("bridge:cooldown:%s", sender)
}
