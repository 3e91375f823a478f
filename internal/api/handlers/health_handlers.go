package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/aurum-ledger/aurum_service/internal/infrastructure/cache"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/database"
)

// HealthHandlers reports service liveness and dependency readiness
type HealthHandlers struct {
	db    *sqlx.DB
	cache cache.RedisClient
}

func NewHealthHandlers(db *sqlx.DB, cacheClient cache.RedisClient) *HealthHandlers {
	return &HealthHandlers{db: db, cache: cacheClient}
}

// Health reports overall service health
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if err := database.HealthCheck(h.db); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	if err := h.cache.Ping(c.Request.Context()); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "healthy"
	}

	c.JSON(status, gin.H{"status": statusWord(status), "checks": checks})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
