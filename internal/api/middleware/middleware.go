package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

// Claims is the JWT payload the service issues and accepts
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// RequestID attaches a unique id to every request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs each request with latency and status
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("Request completed",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// Recovery converts panics into 500 responses
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic recovered",
					"panic", fmt.Sprintf("%v", r),
					"path", c.Request.URL.Path,
					"request_id", c.GetString("request_id"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": c.GetString("request_id"),
				})
			}
		}()
		c.Next()
	}
}

// Metrics records request latency by method, route and status
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Authentication validates the bearer token and stores its claims
func Authentication(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "Authorization header required",
				"request_id": c.GetString("request_id"),
			})
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "Invalid authorization format",
				"request_id": c.GetString("request_id"),
			})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.Security.JWTSecret), nil
		}, jwt.WithIssuer(cfg.Security.JWTIssuer))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "Invalid token",
				"request_id": c.GetString("request_id"),
			})
			return
		}

		c.Set("caller", claims.Subject)
		c.Set("caller_role", claims.Role)
		c.Next()
	}
}

// AdminAuth rejects callers without the configured admin role. Every
// state-mutating admin route sits behind this check.
func AdminAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("caller_role") != cfg.Security.AdminRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "Admin access required",
				"request_id": c.GetString("request_id"),
			})
			return
		}
		c.Next()
	}
}
