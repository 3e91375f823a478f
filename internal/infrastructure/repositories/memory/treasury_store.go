package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// TreasuryStore is an in-memory treasury asset and strategy store
type TreasuryStore struct {
	mu         sync.RWMutex
	assets     map[string]*entities.TreasuryAsset
	strategies map[string]*entities.YieldStrategy
}

// NewTreasuryStore creates a new in-memory treasury store
func NewTreasuryStore() *TreasuryStore {
	return &TreasuryStore{
		assets:     make(map[string]*entities.TreasuryAsset),
		strategies: make(map[string]*entities.YieldStrategy),
	}
}

// GetAsset retrieves an asset by token, nil when not under management
func (s *TreasuryStore) GetAsset(_ context.Context, token string) (*entities.TreasuryAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[token]
	if !ok {
		return nil, nil
	}

	copied := *asset
	return &copied, nil
}

// UpsertAsset writes the full asset row
func (s *TreasuryStore) UpsertAsset(_ context.Context, asset *entities.TreasuryAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *asset
	copied.UpdatedAt = time.Now()
	if existing, ok := s.assets[asset.Token]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else {
		copied.CreatedAt = copied.UpdatedAt
	}
	s.assets[asset.Token] = &copied
	return nil
}

// CreateStrategy registers a yield strategy
func (s *TreasuryStore) CreateStrategy(_ context.Context, strategy *entities.YieldStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.strategies[strategy.StrategyID]; exists {
		return fmt.Errorf("strategy %s already exists", strategy.StrategyID)
	}

	now := time.Now()
	copied := *strategy
	copied.CreatedAt = now
	copied.UpdatedAt = now
	s.strategies[strategy.StrategyID] = &copied
	return nil
}

// UpdateStrategy writes the mutable fields of a strategy
func (s *TreasuryStore) UpdateStrategy(_ context.Context, strategy *entities.YieldStrategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.strategies[strategy.StrategyID]
	if !ok {
		return fmt.Errorf("strategy not found: %s", strategy.StrategyID)
	}

	copied := *strategy
	copied.CreatedAt = existing.CreatedAt
	copied.UpdatedAt = time.Now()
	s.strategies[strategy.StrategyID] = &copied
	return nil
}

// ListActiveStrategies retrieves the active strategies for a token in
// registration order
func (s *TreasuryStore) ListActiveStrategies(_ context.Context, token string) ([]*entities.YieldStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*entities.YieldStrategy
	for _, strategy := range s.strategies {
		if strategy.Token == token && strategy.Active {
			copied := *strategy
			active = append(active, &copied)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	return active, nil
}
