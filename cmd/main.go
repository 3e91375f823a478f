package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aurum-ledger/aurum_service/internal/api/routes"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/di"
	treasuryworker "github.com/aurum-ledger/aurum_service/internal/workers/treasury_rebalance"
	"github.com/aurum-ledger/aurum_service/pkg/graceful"
	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	container, err := di.NewContainer(cfg, log)
	if err != nil {
		log.Fatal("Failed to build service container", "error", err)
	}

	rebalanceWorker := treasuryworker.NewWorker(cfg.Treasury, container.Treasury, log.Zap())
	if err := rebalanceWorker.Start(); err != nil {
		log.Fatal("Failed to start rebalance worker", "error", err)
	}

	router := routes.SetupRoutes(container)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	// Drain order: stop the scheduler and the server first, then close
	// the stores they write to.
	shutdown := graceful.NewShutdownManager(time.Duration(cfg.Server.ShutdownTimeout)*time.Second, log)
	shutdown.Register("rebalance worker", rebalanceWorker)
	shutdown.Register("http server", graceful.Func(server.Shutdown))
	shutdown.RegisterFunc("database", func(context.Context) error { return container.DB.Close() })
	shutdown.RegisterFunc("redis", func(context.Context) error { return container.Cache.Close() })
	shutdown.WaitForShutdown()
}
