package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/ledger"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/transfer"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// TransferHandlers handles value transfer and balance endpoints
type TransferHandlers struct {
	orchestrator *transfer.Orchestrator
	ledger       *ledger.Service
	logger       *logger.Logger
}

func NewTransferHandlers(orchestrator *transfer.Orchestrator, ledgerService *ledger.Service, log *logger.Logger) *TransferHandlers {
	return &TransferHandlers{orchestrator: orchestrator, ledger: ledgerService, logger: log}
}

// Transfer runs a value transfer through the economic pipeline
// POST /api/v1/transfers
func (h *TransferHandlers) Transfer(c *gin.Context) {
	var req struct {
		Sender      string  `json:"sender" binding:"required"`
		Recipient   string  `json:"recipient" binding:"required"`
		Amount      string  `json:"amount" binding:"required"`
		PriorityFee float64 `json:"priority_fee"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	receipt, err := h.orchestrator.Transfer(c.Request.Context(), &entities.TransferRequest{
		Sender:      entities.Address(req.Sender),
		Recipient:   entities.Address(req.Recipient),
		Amount:      amount,
		PriorityFee: decimal.NewFromFloat(req.PriorityFee),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// GetBalance returns an account's spendable balance
// GET /api/v1/accounts/:address/balance
func (h *TransferHandlers) GetBalance(c *gin.Context) {
	address := entities.Address(c.Param("address"))
	if err := address.Validate(); err != nil {
		respondBadRequest(c, "Invalid address: "+err.Error())
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("Failed to read balance", "address", address.String(), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "balance": balance})
}

// GetSupply returns the current issued supply
// GET /api/v1/supply
func (h *TransferHandlers) GetSupply(c *gin.Context) {
	supply, err := h.ledger.TotalSupply(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read total supply", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_supply": supply})
}
