package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/treasury"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/adapters"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// TreasuryHandlers handles treasury management endpoints. All mutating
// routes sit behind admin auth.
type TreasuryHandlers struct {
	engine *treasury.Engine
	logger *logger.Logger
}

func NewTreasuryHandlers(engine *treasury.Engine, log *logger.Logger) *TreasuryHandlers {
	return &TreasuryHandlers{engine: engine, logger: log}
}

// GetAsset returns the managed treasury asset
// GET /api/v1/treasury/asset
func (h *TreasuryHandlers) GetAsset(c *gin.Context) {
	asset, err := h.engine.Asset(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load treasury asset", "error", err)
		respondError(c, err)
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "No asset under management",
			"code":       "NOT_FOUND",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusOK, asset)
}

// AddAsset places a token under treasury management
// POST /api/v1/admin/treasury/assets
func (h *TreasuryHandlers) AddAsset(c *gin.Context) {
	var req struct {
		Token   string `json:"token" binding:"required"`
		Balance string `json:"balance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		parsed, err := decimal.NewFromString(req.Balance)
		if err != nil {
			respondBadRequest(c, "Invalid balance: "+err.Error())
			return
		}
		balance = parsed
	}

	asset, err := h.engine.AddAsset(c.Request.Context(), req.Token, balance)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// AddStrategy registers a yield strategy backed by a simulated adapter.
// Production chains swap the adapter at wiring time; the HTTP surface
// only ever creates simulated ones.
// POST /api/v1/admin/treasury/strategies
func (h *TreasuryHandlers) AddStrategy(c *gin.Context) {
	var req struct {
		StrategyID       string  `json:"strategy_id" binding:"required"`
		Token            string  `json:"token" binding:"required"`
		TargetPercentage float64 `json:"target_percentage" binding:"required"`
		MinAPY           float64 `json:"min_apy"`
		InitialAPY       float64 `json:"initial_apy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	strategy := &entities.YieldStrategy{
		StrategyID:       req.StrategyID,
		Token:            req.Token,
		AllocatedAmount:  decimal.Zero,
		TargetPercentage: decimal.NewFromFloat(req.TargetPercentage),
		MinAPY:           decimal.NewFromFloat(req.MinAPY),
		Active:           true,
	}

	sim := adapters.NewSimStrategyAdapter(req.StrategyID, decimal.NewFromFloat(req.InitialAPY), h.logger.Zap())
	adapter := adapters.NewBreakerStrategyAdapter(req.StrategyID, sim, h.logger.Zap())
	if err := h.engine.AddStrategy(c.Request.Context(), strategy, adapter); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, strategy)
}

// Rebalance runs a reallocation cycle immediately
// POST /api/v1/admin/treasury/rebalance
func (h *TreasuryHandlers) Rebalance(c *gin.Context) {
	report, err := h.engine.Rebalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Zap().Info("Manual rebalance completed", zap.String("token", report.Token))
	c.JSON(http.StatusOK, report)
}
