package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/staking"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// StakingHandlers handles stake position endpoints
type StakingHandlers struct {
	service *staking.Service
	logger  *logger.Logger
}

func NewStakingHandlers(service *staking.Service, log *logger.Logger) *StakingHandlers {
	return &StakingHandlers{service: service, logger: log}
}

type stakeRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
	Lock    bool   `json:"lock"`
}

// Stake moves spendable balance into the caller's stake position
// POST /api/v1/staking/stake
func (h *StakingHandlers) Stake(c *gin.Context) {
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, "Invalid amount: "+err.Error())
		return
	}

	position, err := h.service.Stake(c.Request.Context(), entities.Address(req.Account), amount, req.Lock)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}

// Unstake returns staked balance to the caller
// POST /api/v1/staking/unstake
func (h *StakingHandlers) Unstake(c *gin.Context) {
	var req struct {
		Account string `json:"account" binding:"required"`
		Amount  string `json:"amount" binding:"required"`
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

	position, err := h.service.Unstake(c.Request.Context(), entities.Address(req.Account), amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, position)
}

// Claim mints the pending reward for an account
// POST /api/v1/staking/claim
func (h *StakingHandlers) Claim(c *gin.Context) {
	var req struct {
		Account string `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	reward, err := h.service.Claim(c.Request.Context(), entities.Address(req.Account))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": req.Account, "reward": reward})
}

// GetPosition returns an account's stake position and pending reward
// GET /api/v1/staking/:address
func (h *StakingHandlers) GetPosition(c *gin.Context) {
	address := entities.Address(c.Param("address"))
	if err := address.Validate(); err != nil {
		respondBadRequest(c, "Invalid address: "+err.Error())
		return
	}

	position, err := h.service.PositionOf(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("Failed to load stake position", "address", address.String(), "error", err)
		respondError(c, err)
		return
	}
	if position == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "No stake position",
			"code":       "NO_STAKE",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	pending, err := h.service.PendingReward(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"position": position, "pending_reward": pending})
}
