package entities

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Address identifies an account on the ledger
type Address string

// ZeroAddress is the null identity; it is never a valid participant.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsZero returns true for the null identity
func (a Address) IsZero() bool {
	return a == ZeroAddress || a == ""
}

// Validate checks that the address is well-formed and non-null
func (a Address) Validate() error {
	if a.IsZero() {
		return fmt.Errorf("address is the null identity")
	}
	if !addressPattern.MatchString(string(a)) {
		return fmt.Errorf("malformed address: %s", a)
	}
	return nil
}

func (a Address) String() string {
	return string(a)
}

// System accounts. They hold pooled funds and are never a transfer party.
const (
	SystemAccountFeePool       Address = "0x0000000000000000000000000000000000000f01"
	SystemAccountStakingPool   Address = "0x0000000000000000000000000000000000000f02"
	SystemAccountBridgeCustody Address = "0x0000000000000000000000000000000000000f03"
	SystemAccountTreasury      Address = "0x0000000000000000000000000000000000000f04"
)

// IsSystemAccount returns true for pooled system accounts
func (a Address) IsSystemAccount() bool {
	switch a {
	case SystemAccountFeePool, SystemAccountStakingPool, SystemAccountBridgeCustody, SystemAccountTreasury:
		return true
	}
	return false
}

// LedgerAccount is a balance row in the account ledger
type LedgerAccount struct {
	Address   Address         `json:"address" db:"address"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate validates the ledger account
func (a *LedgerAccount) Validate() error {
	if a.Address.IsZero() && !a.Address.IsSystemAccount() {
		return fmt.Errorf("account address is required")
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("account balance cannot be negative")
	}
	return nil
}

// MovementType represents the direction of a balance movement
type MovementType string

const (
	MovementDebit  MovementType = "debit"
	MovementCredit MovementType = "credit"
	MovementMint   MovementType = "mint"
)

// Validate checks if the movement type is valid
func (m MovementType) Validate() error {
	switch m {
	case MovementDebit, MovementCredit, MovementMint:
		return nil
	default:
		return fmt.Errorf("invalid movement type: %s", m)
	}
}

// Movement is a single balance change applied to one account. A mint is a
// credit backed by new supply rather than by a matching debit.
type Movement struct {
	Account Address         `json:"account"`
	Type    MovementType    `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
}

// Validate validates the movement
func (m *Movement) Validate() error {
	if err := m.Type.Validate(); err != nil {
		return err
	}
	if m.Account.IsZero() && !m.Account.IsSystemAccount() {
		return fmt.Errorf("movement account is required")
	}
	if m.Amount.IsNegative() {
		return fmt.Errorf("movement amount cannot be negative")
	}
	return nil
}

// LedgerApplyRequest groups movements that must commit atomically:
// either every movement applies or none do.
type LedgerApplyRequest struct {
	Reference string     `json:"reference"`
	Movements []Movement `json:"movements"`
}

// Validate validates the request and its conservation property: non-mint
// debits and credits must balance exactly.
func (r *LedgerApplyRequest) Validate() error {
	if len(r.Movements) == 0 {
		return fmt.Errorf("apply request has no movements")
	}

	var debits, credits decimal.Decimal
	for i := range r.Movements {
		m := &r.Movements[i]
		if err := m.Validate(); err != nil {
			return fmt.Errorf("movement %d: %w", i, err)
		}
		switch m.Type {
		case MovementDebit:
			debits = debits.Add(m.Amount)
		case MovementCredit:
			credits = credits.Add(m.Amount)
		}
	}

	if !debits.Equal(credits) {
		return fmt.Errorf("unbalanced movements: debits=%s credits=%s", debits.String(), credits.String())
	}
	return nil
}
