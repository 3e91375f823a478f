package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/referral"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// ReferralHandlers handles referral graph endpoints
type ReferralHandlers struct {
	service *referral.Service
	logger  *logger.Logger
}

func NewReferralHandlers(service *referral.Service, log *logger.Logger) *ReferralHandlers {
	return &ReferralHandlers{service: service, logger: log}
}

// Register binds a referred account to its referrer
// POST /api/v1/referrals
func (h *ReferralHandlers) Register(c *gin.Context) {
	var req struct {
		Referred string `json:"referred" binding:"required"`
		Referrer string `json:"referrer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	err := h.service.Register(c.Request.Context(), entities.Address(req.Referred), entities.Address(req.Referrer))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"referred": req.Referred, "referrer": req.Referrer})
}

// GetStats returns aggregate referral stats for a referrer
// GET /api/v1/referrals/:address/stats
func (h *ReferralHandlers) GetStats(c *gin.Context) {
	address := entities.Address(c.Param("address"))
	if err := address.Validate(); err != nil {
		respondBadRequest(c, "Invalid address: "+err.Error())
		return
	}

	stats, err := h.service.StatsOf(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("Failed to load referral stats", "address", address.String(), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
