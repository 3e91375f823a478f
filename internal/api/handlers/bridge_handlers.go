package handlers

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/bridge"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/adapters"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// BridgeHandlers handles cross-chain transfer endpoints
type BridgeHandlers struct {
	service    *bridge.Service
	defaultKey string
	logger     *logger.Logger
}

func NewBridgeHandlers(service *bridge.Service, defaultKey string, log *logger.Logger) *BridgeHandlers {
	return &BridgeHandlers{service: service, defaultKey: defaultKey, logger: log}
}

// Initiate starts an outbound cross-chain transfer
// POST /api/v1/bridge/initiate
func (h *BridgeHandlers) Initiate(c *gin.Context) {
	var req struct {
		Sender      string `json:"sender" binding:"required"`
		TargetChain string `json:"target_chain" binding:"required"`
		Recipient   string `json:"recipient" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
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

	tx, err := h.service.InitiateBridge(c.Request.Context(),
		entities.Address(req.Sender), req.TargetChain, entities.Address(req.Recipient), amount)
	if err != nil {
		// A dispatch failure still carries the committed transaction;
		// surface both so the caller can re-dispatch by id.
		if tx != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       err.Error(),
				"transaction": tx,
				"request_id":  c.GetString("request_id"),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// Complete settles an inbound transfer. Only the registered adapter for
// the source chain may call this, authenticated by the adapter key header.
// POST /api/v1/bridge/complete
func (h *BridgeHandlers) Complete(c *gin.Context) {
	var req struct {
		SourceChain string `json:"source_chain" binding:"required"`
		Recipient   string `json:"recipient" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		Proof       string `json:"proof" binding:"required"`
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

	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		respondBadRequest(c, "Proof must be hex encoded: "+err.Error())
		return
	}

	tx, err := h.service.CompleteBridge(c.Request.Context(),
		req.SourceChain, entities.Address(req.Recipient), amount, proof, c.GetHeader("X-Adapter-Key"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// RegisterChain adds a supported destination chain with a simulated relay
// adapter. The adapter key defaults to the service key when omitted.
// POST /api/v1/admin/bridge/chains
func (h *BridgeHandlers) RegisterChain(c *gin.Context) {
	var req struct {
		Chain      string `json:"chain" binding:"required"`
		AdapterKey string `json:"adapter_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	key := req.AdapterKey
	if key == "" {
		key = h.defaultKey
	}

	relay := adapters.NewBreakerBridgeAdapter(req.Chain,
		adapters.NewSimBridgeAdapter(req.Chain, h.logger.Zap()), h.logger.Zap())
	h.service.RegisterAdapter(req.Chain, relay, key)

	h.logger.Info("Registered bridge chain", "chain", req.Chain)
	c.JSON(http.StatusCreated, gin.H{"chain": req.Chain, "status": "registered"})
}

// GetTransaction returns a bridge transaction by id
// GET /api/v1/bridge/transactions/:id
func (h *BridgeHandlers) GetTransaction(c *gin.Context) {
	tx, err := h.service.Transaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to load bridge transaction", "id", c.Param("id"), "error", err)
		respondError(c, err)
		return
	}
	if tx == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "Bridge transaction not found",
			"code":       "NOT_FOUND",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// GetHistory returns a sender's bridge transactions, newest first
// GET /api/v1/bridge/history/:address
func (h *BridgeHandlers) GetHistory(c *gin.Context) {
	address := entities.Address(c.Param("address"))
	if err := address.Validate(); err != nil {
		respondBadRequest(c, "Invalid address: "+err.Error())
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondBadRequest(c, "Limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	txs, err := h.service.History(c.Request.Context(), address, limit)
	if err != nil {
		h.logger.Error("Failed to load bridge history", "address", address.String(), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
