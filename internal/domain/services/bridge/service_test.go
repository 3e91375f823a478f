package bridge

import (
	"context"
	"errors"
	"sync"
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

const (
	sender    = entities.Address("0x00000000000000000000000000000000000000aa")
	recipient = entities.Address("0x00000000000000000000000000000000000000bb")

	targetChain = "basechain"
	adapterKey  = "adapter-secret"
)

// fakeCache is an in-process stand-in for the Redis client. Keys never
// expire, which is fine for single-test lifetimes.
type fakeCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: make(map[string]struct{})}
}

func (c *fakeCache) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = struct{}{}
	return nil
}

func (c *fakeCache) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.keys[key]; exists {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *fakeCache) Get(_ context.Context, key string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.keys[key]; !exists {
		return errors.New("key not found")
	}
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.keys[key]
	return exists, nil
}

func (c *fakeCache) TTL(_ context.Context, _ string) (time.Duration, error) { return 0, nil }
func (c *fakeCache) Ping(_ context.Context) error                           { return nil }
func (c *fakeCache) Close() error                                           { return nil }

// fakeAdapter records dispatches and fails on demand
type fakeAdapter struct {
	err        error
	dispatched int
}

func (a *fakeAdapter) Dispatch(_ context.Context, _ string, _ entities.Address, _ decimal.Decimal) error {
	a.dispatched++
	return a.err
}

type bridgeFixture struct {
	svc     *Service
	ledger  *ledger.Service
	store   *memory.BridgeStore
	cache   *fakeCache
	adapter *fakeAdapter
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	cfg := config.BridgeConfig{
		ChainName:    "aurum-main",
		MinAmount:    10,
		CooldownSecs: 300,
	}

	log := zap.NewNop()
	f := &bridgeFixture{
		store:   memory.NewBridgeStore(),
		cache:   newFakeCache(),
		adapter: &fakeAdapter{},
	}
	f.ledger = ledger.NewService(memory.NewLedgerStore(), log)
	notifier := notifications.NewLogPublisher(log)
	f.svc = NewService(cfg, f.store, f.ledger, f.cache, notifier, log)
	f.svc.RegisterAdapter(targetChain, f.adapter, adapterKey)

	require.NoError(t, f.ledger.Mint(context.Background(), sender, decimal.NewFromInt(1_000)))
	return f
}

func (f *bridgeFixture) balance(t *testing.T, account entities.Address) decimal.Decimal {
	t.Helper()
	balance, err := f.ledger.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return balance
}

func TestInitiateBridge_MovesFundsToCustody(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)

	tx, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, entities.BridgeStatusPending, tx.Status)
	assert.Equal(t, 1, f.adapter.dispatched)
	assert.True(t, f.balance(t, sender).Equal(decimal.NewFromInt(900)))
	assert.True(t, f.balance(t, entities.SystemAccountBridgeCustody).Equal(decimal.NewFromInt(100)))

	history, err := f.svc.History(ctx, sender, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tx.ID, history[0].ID)
}

func TestInitiateBridge_BelowMinimum(t *testing.T) {
	f := newBridgeFixture(t)

	_, err := f.svc.InitiateBridge(context.Background(), sender, targetChain, recipient, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAmountTooLow, apperrors.CodeOf(err))
}

func TestInitiateBridge_UnsupportedChain(t *testing.T) {
	f := newBridgeFixture(t)

	_, err := f.svc.InitiateBridge(context.Background(), sender, "unknown-chain", recipient, decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedChain, apperrors.CodeOf(err))
}

func TestInitiateBridge_CooldownActive(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)

	_, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCooldownActive, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindTooSoon, apperrors.KindOf(err))

	// The rejected attempt moved no funds.
	assert.True(t, f.balance(t, sender).Equal(decimal.NewFromInt(900)))
}

func TestInitiateBridge_RejectedCallDoesNotConsumeCooldown(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)

	// More than the sender holds: the custody debit fails and nothing
	// commits, so the cooldown window must stay open.
	_, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(2_000))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientBalance, apperrors.CodeOf(err))
	assert.True(t, f.balance(t, sender).Equal(decimal.NewFromInt(1_000)))

	tx, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.True(t, f.balance(t, sender).Equal(decimal.NewFromInt(900)))
}

func TestInitiateBridge_DispatchFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)
	f.adapter.err = errors.New("relay unreachable")

	tx, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAdapterFailure, apperrors.CodeOf(err))
	assert.True(t, apperrors.ShouldRetry(err))

	// Custody and the record were committed before the dispatch attempt.
	require.NotNil(t, tx)
	assert.True(t, f.balance(t, entities.SystemAccountBridgeCustody).Equal(decimal.NewFromInt(100)))

	stored, lookupErr := f.svc.Transaction(ctx, tx.ID)
	require.NoError(t, lookupErr)
	require.NotNil(t, stored)
	assert.Equal(t, entities.BridgeStatusPending, stored.Status)
}

func TestInitiateBridge_DistinctNonces(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)

	other := entities.Address("0x00000000000000000000000000000000000000cc")
	require.NoError(t, f.ledger.Mint(ctx, other, decimal.NewFromInt(1_000)))

	tx1, err := f.svc.InitiateBridge(ctx, sender, targetChain, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)
	tx2, err := f.svc.InitiateBridge(ctx, other, targetChain, recipient, decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.NotEqual(t, tx1.ID, tx2.ID)
}

func TestCompleteBridge_MintsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newBridgeFixture(t)
	proof := []byte("settlement-proof-1")

	tx, err := f.svc.CompleteBridge(ctx, targetChain, recipient, decimal.NewFromInt(50), proof, adapterKey)
	require.NoError(t, err)
	assert.Equal(t, entities.BridgeStatusProcessed, tx.Status)
	assert.True(t, f.balance(t, recipient).Equal(decimal.NewFromInt(50)))

	// A duplicate delivery of the same settlement is a no-op returning the
	// processed record.
	replayed, err := f.svc.CompleteBridge(ctx, targetChain, recipient, decimal.NewFromInt(50), proof, adapterKey)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, replayed.ID)
	assert.True(t, f.balance(t, recipient).Equal(decimal.NewFromInt(50)), "replay must not credit twice")

	// A different proof is a distinct settlement.
	_, err = f.svc.CompleteBridge(ctx, targetChain, recipient, decimal.NewFromInt(50), []byte("settlement-proof-2"), adapterKey)
	require.NoError(t, err)
	assert.True(t, f.balance(t, recipient).Equal(decimal.NewFromInt(100)))
}

func TestCompleteBridge_UnauthorizedAdapter(t *testing.T) {
	f := newBridgeFixture(t)

	_, err := f.svc.CompleteBridge(context.Background(), targetChain, recipient, decimal.NewFromInt(50), []byte("proof"), "wrong-key")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorizedAdapter, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
}

func TestCompleteBridge_UnsupportedSourceChain(t *testing.T) {
	f := newBridgeFixture(t)

	_, err := f.svc.CompleteBridge(context.Background(), "unknown-chain", recipient, decimal.NewFromInt(50), []byte("proof"), adapterKey)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedChain, apperrors.CodeOf(err))
}
