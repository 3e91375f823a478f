package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// StakeStore is an in-memory stake position store
type StakeStore struct {
	mu        sync.RWMutex
	positions map[entities.Address]*entities.StakePosition
}

// NewStakeStore creates a new in-memory stake store
func NewStakeStore() *StakeStore {
	return &StakeStore{
		positions: make(map[entities.Address]*entities.StakePosition),
	}
}

// Get retrieves a position, nil when the account has never staked
func (s *StakeStore) Get(_ context.Context, account entities.Address) (*entities.StakePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.positions[account]
	if !ok {
		return nil, nil
	}

	copied := *position
	return &copied, nil
}

// Upsert writes the full position row
func (s *StakeStore) Upsert(_ context.Context, position *entities.StakePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *position
	copied.UpdatedAt = time.Now()
	s.positions[position.Account] = &copied
	return nil
}
