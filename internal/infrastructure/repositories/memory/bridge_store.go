package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// BridgeStore is an in-memory bridge transaction store
type BridgeStore struct {
	mu    sync.RWMutex
	txs   map[string]*entities.BridgeTransaction
	nonce uint64
}

// NewBridgeStore creates a new in-memory bridge store
func NewBridgeStore() *BridgeStore {
	return &BridgeStore{
		txs: make(map[string]*entities.BridgeTransaction),
	}
}

// Create records a bridge transaction under its deterministic id
func (s *BridgeStore) Create(_ context.Context, tx *entities.BridgeTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return fmt.Errorf("bridge transaction %s already recorded", tx.ID)
	}

	copied := *tx
	s.txs[tx.ID] = &copied
	return nil
}

// Get retrieves a transaction by id, nil when the id has never been seen
func (s *BridgeStore) Get(_ context.Context, id string) (*entities.BridgeTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, nil
	}

	copied := *tx
	return &copied, nil
}

// MarkProcessed transitions a transaction to the processed state
func (s *BridgeStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return fmt.Errorf("bridge transaction not found: %s", id)
	}

	tx.Status = entities.BridgeStatusProcessed
	return nil
}

// ListBySender retrieves the bridge history for a sender, newest first
func (s *BridgeStore) ListBySender(_ context.Context, sender entities.Address, limit int) ([]*entities.BridgeTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entities.BridgeTransaction
	for _, tx := range s.txs {
		if tx.Sender == sender {
			copied := *tx
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// NextNonce atomically advances and returns the outbound bridge nonce
func (s *BridgeStore) NextNonce(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonce++
	return s.nonce, nil
}
