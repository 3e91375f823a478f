package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// ReferralStore is an in-memory referral record and stats store
type ReferralStore struct {
	mu      sync.RWMutex
	records map[entities.Address]*entities.ReferralRecord
	stats   map[entities.Address]*entities.ReferralStats
}

// NewReferralStore creates a new in-memory referral store
func NewReferralStore() *ReferralStore {
	return &ReferralStore{
		records: make(map[entities.Address]*entities.ReferralRecord),
		stats:   make(map[entities.Address]*entities.ReferralStats),
	}
}

// CreateRecord registers a referred-to-referrer binding, rejecting a second
// registration for the same referred account
func (s *ReferralStore) CreateRecord(_ context.Context, record *entities.ReferralRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.Referred]; exists {
		return apperrors.Ef(apperrors.KindStateConflict, apperrors.CodeAlreadyRegistered,
			"account %s is already referred", record.Referred)
	}

	copied := *record
	copied.CreatedAt = time.Now()
	s.records[record.Referred] = &copied
	return nil
}

// GetRecord retrieves the binding for a referred account, nil when absent
func (s *ReferralStore) GetRecord(_ context.Context, referred entities.Address) (*entities.ReferralRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[referred]
	if !ok {
		return nil, nil
	}

	copied := *record
	return &copied, nil
}

// CountReferrals returns how many accounts a referrer has registered
func (s *ReferralStore) CountReferrals(_ context.Context, referrer entities.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if record.Referrer == referrer {
			count++
		}
	}
	return count, nil
}

// GetStats retrieves aggregate stats for a referrer, nil when absent
func (s *ReferralStore) GetStats(_ context.Context, referrer entities.Address) (*entities.ReferralStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[referrer]
	if !ok {
		return nil, nil
	}

	copied := *stats
	return &copied, nil
}

// UpsertStats writes the full stats row for a referrer
func (s *ReferralStore) UpsertStats(_ context.Context, stats *entities.ReferralStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *stats
	copied.UpdatedAt = time.Now()
	s.stats[stats.Referrer] = &copied
	return nil
}
