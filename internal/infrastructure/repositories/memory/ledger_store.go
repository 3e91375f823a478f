package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// LedgerStore is an in-memory ledger account store. It backstops tests and
// single-process development runs with the same atomicity contract the
// database repository provides.
type LedgerStore struct {
	mu       sync.RWMutex
	accounts map[entities.Address]*entities.LedgerAccount
	supply   decimal.Decimal
}

// NewLedgerStore creates a new in-memory ledger store
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts: make(map[entities.Address]*entities.LedgerAccount),
	}
}

// Get retrieves an account by address, nil when it has never been credited
func (s *LedgerStore) Get(_ context.Context, address entities.Address) (*entities.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[address]
	if !ok {
		return nil, nil
	}

	copied := *acct
	return &copied, nil
}

// TotalSupply retrieves the current issued supply
func (s *LedgerStore) TotalSupply(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, nil
}

// Apply commits a group of movements atomically. All debits are checked
// before any balance changes so a failing movement leaves the store
// untouched.
func (s *LedgerStore) Apply(_ context.Context, movements []entities.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Dry run: verify every debit is covered, accounting for earlier
	// movements in the same group.
	pending := make(map[entities.Address]decimal.Decimal)
	for i := range movements {
		m := &movements[i]
		balance, ok := pending[m.Account]
		if !ok {
			if acct, exists := s.accounts[m.Account]; exists {
				balance = acct.Balance
			} else {
				balance = decimal.Zero
			}
		}

		switch m.Type {
		case entities.MovementDebit:
			if balance.LessThan(m.Amount) {
				return apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeInsufficientBalance,
					"account %s balance %s is below %s", m.Account, balance.String(), m.Amount.String())
			}
			balance = balance.Sub(m.Amount)
		case entities.MovementCredit, entities.MovementMint:
			balance = balance.Add(m.Amount)
		}
		pending[m.Account] = balance
	}

	now := time.Now()
	for addr, balance := range pending {
		acct, ok := s.accounts[addr]
		if !ok {
			acct = &entities.LedgerAccount{Address: addr, CreatedAt: now}
			s.accounts[addr] = acct
		}
		acct.Balance = balance
		acct.UpdatedAt = now
	}

	for i := range movements {
		if movements[i].Type == entities.MovementMint {
			s.supply = s.supply.Add(movements[i].Amount)
		}
	}

	return nil
}
