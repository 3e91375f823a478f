package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/database"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// LedgerRepository handles ledger account persistence
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Get retrieves an account by address. Returns nil without error when the
// account has never been credited.
func (r *LedgerRepository) Get(ctx context.Context, address entities.Address) (*entities.LedgerAccount, error) {
	query := `
		SELECT address, balance, created_at, updated_at
		FROM ledger_accounts
		WHERE address = $1
	`

	var account entities.LedgerAccount
	err := r.db.GetContext(ctx, &account, query, address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// TotalSupply retrieves the current issued supply
func (r *LedgerRepository) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	query := `SELECT total_supply FROM ledger_supply WHERE id = 1`

	var supply decimal.Decimal
	err := r.db.QueryRowxContext(ctx, query).Scan(&supply)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get total supply: %w", err)
	}

	return supply, nil
}

// Apply commits a group of movements in a single database transaction.
// Debited rows are locked before the balance check so concurrent spends of
// the same account serialize instead of double spending.
func (r *LedgerRepository) Apply(ctx context.Context, movements []entities.Movement) error {
	return database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now()
		for i := range movements {
			m := &movements[i]
			switch m.Type {
			case entities.MovementDebit:
				if err := r.applyDebit(ctx, tx, m, now); err != nil {
					return err
				}
			case entities.MovementCredit:
				if err := r.applyCredit(ctx, tx, m, now); err != nil {
					return err
				}
			case entities.MovementMint:
				if err := r.applyCredit(ctx, tx, m, now); err != nil {
					return err
				}
				if err := r.bumpSupply(ctx, tx, m.Amount, now); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown movement type: %s", m.Type)
			}
		}
		return nil
	})
}

func (r *LedgerRepository) applyDebit(ctx context.Context, tx *sqlx.Tx, m *entities.Movement, now time.Time) error {
	query := `
		SELECT balance FROM ledger_accounts
		WHERE address = $1
		FOR UPDATE
	`

	var balance decimal.Decimal
	err := tx.QueryRowxContext(ctx, query, m.Account).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeInsufficientBalance,
				"account %s has no balance", m.Account)
		}
		return fmt.Errorf("lock account: %w", err)
	}

	if balance.LessThan(m.Amount) {
		return apperrors.Ef(apperrors.KindLimitExceeded, apperrors.CodeInsufficientBalance,
			"account %s balance %s is below %s", m.Account, balance.String(), m.Amount.String())
	}

	update := `
		UPDATE ledger_accounts
		SET balance = balance - $1, updated_at = $2
		WHERE address = $3
	`
	if _, err := tx.ExecContext(ctx, update, m.Amount, now, m.Account); err != nil {
		return fmt.Errorf("debit account: %w", err)
	}

	return nil
}

func (r *LedgerRepository) applyCredit(ctx context.Context, tx *sqlx.Tx, m *entities.Movement, now time.Time) error {
	query := `
		INSERT INTO ledger_accounts (address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (address)
		DO UPDATE SET balance = ledger_accounts.balance + $2, updated_at = $3
	`

	if _, err := tx.ExecContext(ctx, query, m.Account, m.Amount, now); err != nil {
		return fmt.Errorf("credit account: %w", err)
	}

	return nil
}

func (r *LedgerRepository) bumpSupply(ctx context.Context, tx *sqlx.Tx, amount decimal.Decimal, now time.Time) error {
	query := `
		INSERT INTO ledger_supply (id, total_supply, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET total_supply = ledger_supply.total_supply + $1, updated_at = $2
	`

	if _, err := tx.ExecContext(ctx, query, amount, now); err != nil {
		return fmt.Errorf("update total supply: %w", err)
	}

	return nil
}
