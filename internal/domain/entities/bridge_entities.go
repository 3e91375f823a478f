package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BridgeStatus is the settlement state of a cross-chain transfer
type BridgeStatus string

const (
	BridgeStatusPending   BridgeStatus = "pending"
	BridgeStatusProcessed BridgeStatus = "processed"
)

// Validate checks if the status is valid
func (s BridgeStatus) Validate() error {
	switch s {
	case BridgeStatusPending, BridgeStatusProcessed:
		return nil
	default:
		return fmt.Errorf("invalid bridge status: %s", s)
	}
}

// BridgeTransaction records one cross-chain transfer. Processed is terminal:
// a transaction is never reverted once settled.
type BridgeTransaction struct {
	ID          string          `json:"id" db:"id"`
	SourceChain string          `json:"source_chain" db:"source_chain"`
	TargetChain string          `json:"target_chain" db:"target_chain"`
	Sender      Address         `json:"sender" db:"sender"`
	Recipient   Address         `json:"recipient" db:"recipient"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	Status      BridgeStatus    `json:"status" db:"status"`
}

// Processed returns true once the transaction reached its terminal state
func (t *BridgeTransaction) Processed() bool {
	return t.Status == BridgeStatusProcessed
}

// Validate validates the transaction
func (t *BridgeTransaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("bridge transaction id is required")
	}
	if t.SourceChain == "" || t.TargetChain == "" {
		return fmt.Errorf("source and target chains are required")
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("bridge amount must be positive")
	}
	return t.Status.Validate()
}

// OutboundBridgeID derives the deterministic transaction id for an outbound
// transfer from the settlement tuple plus a monotonic per-ledger nonce.
func OutboundBridgeID(sourceChain string, sender, recipient Address, amount decimal.Decimal, nonce uint64) string {
	return bridgeID(fmt.Sprintf("%s|%s|%s|%s|%d", sourceChain, sender, recipient, amount.String(), nonce))
}

// InboundBridgeID derives the deterministic transaction id for an inbound
// completion. Duplicate deliveries of the same settlement produce the same
// id, which is what makes replay protection a pure lookup.
func InboundBridgeID(sourceChain string, recipient Address, amount decimal.Decimal, proof []byte) string {
	return bridgeID(fmt.Sprintf("%s|%s|%s|%x", sourceChain, recipient, amount.String(), proof))
}

func bridgeID(preimage string) string {
	sum := sha256.Sum256([]byte(preimage))
	return hex.EncodeToString(sum[:])
}
