package di

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aurum-ledger/aurum_service/internal/domain/services/analytics"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/antibot"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/bridge"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/fees"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/ledger"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/notifications"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/referral"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/staking"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/transfer"
	"github.com/aurum-ledger/aurum_service/internal/domain/services/treasury"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/adapters"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/cache"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/database"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/repositories"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// Container wires infrastructure, repositories and domain services
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *sqlx.DB
	Cache  cache.RedisClient

	Notifier     notifications.Publisher
	Ledger       *ledger.Service
	FeeEngine    *fees.Engine
	Detector     *antibot.Detector
	Referral     *referral.Service
	Staking      *staking.Service
	Volume       *analytics.VolumeTracker
	Orchestrator *transfer.Orchestrator
	Treasury     *treasury.Engine
	Bridge       *bridge.Service
}

// NewContainer builds the full service graph
func NewContainer(cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	ledgerRepo := repositories.NewLedgerRepository(db)
	patternRepo := repositories.NewPatternRepository(db)
	stakeRepo := repositories.NewStakeRepository(db)
	referralRepo := repositories.NewReferralRepository(db)
	treasuryRepo := repositories.NewTreasuryRepository(db)
	bridgeRepo := repositories.NewBridgeRepository(db)

	notifier := notifications.NewLogPublisher(log.Zap())
	ledgerService := ledger.NewService(ledgerRepo, log.Zap())
	feeEngine := fees.NewEngine(cfg.Fees)
	detector := antibot.NewDetector(cfg.AntiBot, patternRepo, notifier, log.Zap())
	referralService := referral.NewService(cfg.Referral, referralRepo, ledgerService, notifier, log.Zap())
	stakingService := staking.NewService(cfg.Staking, stakeRepo, ledgerService, notifier, log.Zap())
	volume := analytics.NewVolumeTracker()
	orchestrator := transfer.NewOrchestrator(cfg.Fees, detector, feeEngine, ledgerService, referralService, volume, log.Zap())
	treasuryEngine := treasury.NewEngine(cfg.Treasury, treasuryRepo, notifier, log.Zap())
	bridgeService := bridge.NewService(cfg.Bridge, bridgeRepo, ledgerService, redisClient, notifier, log.Zap())

	// Development adapters for the configured chains. Production wiring
	// replaces these with real chain connectors and per-adapter keys.
	for _, chain := range cfg.Bridge.SupportedChains {
		relay := adapters.NewBreakerBridgeAdapter(chain, adapters.NewSimBridgeAdapter(chain, log.Zap()), log.Zap())
		bridgeService.RegisterAdapter(chain, relay, cfg.Security.JWTSecret)
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		Cache:        redisClient,
		Notifier:     notifier,
		Ledger:       ledgerService,
		FeeEngine:    feeEngine,
		Detector:     detector,
		Referral:     referralService,
		Staking:      stakingService,
		Volume:       volume,
		Orchestrator: orchestrator,
		Treasury:     treasuryEngine,
		Bridge:       bridgeService,
	}, nil
}
