package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/antibot"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// SecurityHandlers exposes anti-bot state to operators
type SecurityHandlers struct {
	detector *antibot.Detector
	logger   *logger.Logger
}

func NewSecurityHandlers(detector *antibot.Detector, log *logger.Logger) *SecurityHandlers {
	return &SecurityHandlers{detector: detector, logger: log}
}

// ListFlagged returns all flagged accounts
// GET /api/v1/admin/security/flagged
func (h *SecurityHandlers) ListFlagged(c *gin.Context) {
	patterns, err := h.detector.ListFlagged(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list flagged accounts", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flagged": patterns, "count": len(patterns)})
}

// GetPatternStatus reports whether an account is flagged
// GET /api/v1/admin/security/accounts/:address
func (h *SecurityHandlers) GetPatternStatus(c *gin.Context) {
	address := entities.Address(c.Param("address"))
	if err := address.Validate(); err != nil {
		respondBadRequest(c, "Invalid address: "+err.Error())
		return
	}

	flagged, err := h.detector.IsFlagged(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "flagged": flagged})
}
