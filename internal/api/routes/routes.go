package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/aurum-ledger/aurum_service/internal/api/handlers"
	"github.com/aurum-ledger/aurum_service/internal/api/middleware"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/di"
	"github.com/aurum-ledger/aurum_service/pkg/metrics"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	if container.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))

	transferHandlers := handlers.NewTransferHandlers(container.Orchestrator, container.Ledger, container.Logger)
	stakingHandlers := handlers.NewStakingHandlers(container.Staking, container.Logger)
	referralHandlers := handlers.NewReferralHandlers(container.Referral, container.Logger)
	bridgeHandlers := handlers.NewBridgeHandlers(container.Bridge, container.Config.Security.JWTSecret, container.Logger)
	treasuryHandlers := handlers.NewTreasuryHandlers(container.Treasury, container.Logger)
	securityHandlers := handlers.NewSecurityHandlers(container.Detector, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.DB, container.Cache)

	router.GET("/health", healthHandlers.Health)
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(container.Config))
	{
		v1.POST("/transfers", transferHandlers.Transfer)
		v1.GET("/accounts/:address/balance", transferHandlers.GetBalance)
		v1.GET("/supply", transferHandlers.GetSupply)

		v1.POST("/staking/stake", stakingHandlers.Stake)
		v1.POST("/staking/unstake", stakingHandlers.Unstake)
		v1.POST("/staking/claim", stakingHandlers.Claim)
		v1.GET("/staking/:address", stakingHandlers.GetPosition)

		v1.POST("/referrals", referralHandlers.Register)
		v1.GET("/referrals/:address/stats", referralHandlers.GetStats)

		v1.POST("/bridge/initiate", bridgeHandlers.Initiate)
		v1.POST("/bridge/complete", bridgeHandlers.Complete)
		v1.GET("/bridge/transactions/:id", bridgeHandlers.GetTransaction)
		v1.GET("/bridge/history/:address", bridgeHandlers.GetHistory)

		v1.GET("/treasury/asset", treasuryHandlers.GetAsset)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(container.Config))
		{
			admin.POST("/treasury/assets", treasuryHandlers.AddAsset)
			admin.POST("/treasury/strategies", treasuryHandlers.AddStrategy)
			admin.POST("/treasury/rebalance", treasuryHandlers.Rebalance)

			admin.POST("/bridge/chains", bridgeHandlers.RegisterChain)

			admin.GET("/security/flagged", securityHandlers.ListFlagged)
			admin.GET("/security/accounts/:address", securityHandlers.GetPatternStatus)
		}
	}

	return router
}
