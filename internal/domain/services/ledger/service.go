package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// Repository defines persistence operations for ledger accounts. Apply must
// commit all movements atomically or none at all, and must reject any debit
// that would drive a balance negative.
type Repository interface {
	Get(ctx context.Context, address entities.Address) (*entities.LedgerAccount, error)
	Apply(ctx context.Context, movements []entities.Movement) error
	TotalSupply(ctx context.Context) (decimal.Decimal, error)
}

// Service is the account ledger capability: balance bookkeeping for every
// other component. It never decides economics, it only moves value.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new ledger service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// BalanceOf returns the spendable balance of an account, zero if the
// account has never been credited.
func (s *Service) BalanceOf(ctx context.Context, account entities.Address) (decimal.Decimal, error) {
	acct, err := s.repo.Get(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get account: %w", err)
	}
	if acct == nil {
		return decimal.Zero, nil
	}
	return acct.Balance, nil
}

// TotalSupply returns the current issued supply
func (s *Service) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.TotalSupply(ctx)
}

// Credit adds amount to an account's balance
func (s *Service) Credit(ctx context.Context, account entities.Address, amount decimal.Decimal) error {
	return s.apply(ctx, entities.Movement{Account: account, Type: entities.MovementCredit, Amount: amount})
}

// Debit removes amount from an account's balance
func (s *Service) Debit(ctx context.Context, account entities.Address, amount decimal.Decimal) error {
	return s.apply(ctx, entities.Movement{Account: account, Type: entities.MovementDebit, Amount: amount})
}

// Mint credits an account with newly issued supply
func (s *Service) Mint(ctx context.Context, account entities.Address, amount decimal.Decimal) error {
	return s.apply(ctx, entities.Movement{Account: account, Type: entities.MovementMint, Amount: amount})
}

func (s *Service) apply(ctx context.Context, m entities.Movement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validate movement: %w", err)
	}
	return s.repo.Apply(ctx, []entities.Movement{m})
}

// Transfer commits a balanced group of movements atomically. This is the
// settlement primitive the transfer pipeline uses: debit of the gross
// amount, credit of the fee pool, credit of the net amount all land
// together or not at all.
func (s *Service) Transfer(ctx context.Context, req *entities.LedgerApplyRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("validate apply request: %w", err)
	}

	if err := s.repo.Apply(ctx, req.Movements); err != nil {
		return err
	}

	s.logger.Debug("Ledger movements applied",
		zap.String("reference", req.Reference),
		zap.Int("movements", len(req.Movements)))

	return nil
}
