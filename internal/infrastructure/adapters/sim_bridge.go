package adapters

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
)

// SimBridgeAdapter stands in for a remote chain's messaging layer. It
// acknowledges every dispatch; actual delivery happens out of band in
// development environments.
type SimBridgeAdapter struct {
	chain  string
	logger *zap.Logger
}

// NewSimBridgeAdapter creates a simulated bridge adapter for a chain
func NewSimBridgeAdapter(chain string, logger *zap.Logger) *SimBridgeAdapter {
	return &SimBridgeAdapter{chain: chain, logger: logger}
}

func (a *SimBridgeAdapter) Dispatch(_ context.Context, targetChain string, recipient entities.Address, amount decimal.Decimal) error {
	a.logger.Info("Sim bridge dispatch",
		zap.String("chain", a.chain),
		zap.String("target_chain", targetChain),
		zap.String("recipient", recipient.String()),
		zap.String("amount", amount.String()))
	return nil
}
