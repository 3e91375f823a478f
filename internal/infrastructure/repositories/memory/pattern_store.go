package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// PatternStore is an in-memory trading pattern store
type PatternStore struct {
	mu       sync.RWMutex
	patterns map[entities.Address]*entities.TradingPattern
}

// NewPatternStore creates a new in-memory pattern store
func NewPatternStore() *PatternStore {
	return &PatternStore{
		patterns: make(map[entities.Address]*entities.TradingPattern),
	}
}

// Get retrieves a pattern, nil when the account has never traded
func (s *PatternStore) Get(_ context.Context, account entities.Address) (*entities.TradingPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern, ok := s.patterns[account]
	if !ok {
		return nil, nil
	}

	copied := *pattern
	return &copied, nil
}

// Upsert writes the full pattern row. A flag already set is never cleared.
func (s *PatternStore) Upsert(_ context.Context, pattern *entities.TradingPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *pattern
	copied.UpdatedAt = time.Now()

	if existing, ok := s.patterns[pattern.Account]; ok {
		copied.FirstTradeTime = existing.FirstTradeTime
		if existing.Flagged {
			copied.Flagged = true
			copied.FlagReason = existing.FlagReason
		}
	}

	s.patterns[pattern.Account] = &copied
	return nil
}

// ListFlagged retrieves all flagged accounts, most recently updated first
func (s *PatternStore) ListFlagged(_ context.Context) ([]*entities.TradingPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var flagged []*entities.TradingPattern
	for _, pattern := range s.patterns {
		if pattern.Flagged {
			copied := *pattern
			flagged = append(flagged, &copied)
		}
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].UpdatedAt.After(flagged[j].UpdatedAt)
	})

	return flagged, nil
}
