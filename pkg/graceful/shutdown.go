package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

// Shutdowner is any component that can drain and stop within a deadline
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Func adapts a plain function to the Shutdowner interface, which lets
// callers register closures such as server.Shutdown or a Close wrapper.
type Func func(ctx context.Context) error

func (f Func) Shutdown(ctx context.Context) error { return f(ctx) }

type stage struct {
	name string
	s    Shutdowner
}

// ShutdownManager stops registered components in registration order
// under a single deadline. Register draining components (workers, the
// HTTP server) before the resources they drain into (database, cache).
type ShutdownManager struct {
	timeout time.Duration
	stages  []stage
	logger  *logger.Logger
}

func NewShutdownManager(timeout time.Duration, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		timeout: timeout,
		stages:  make([]stage, 0),
		logger:  logger,
	}
}

func (sm *ShutdownManager) Register(name string, s Shutdowner) {
	sm.stages = append(sm.stages, stage{name: name, s: s})
}

func (sm *ShutdownManager) RegisterFunc(name string, fn func(ctx context.Context) error) {
	sm.Register(name, Func(fn))
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then runs Shutdown
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")
	sm.Shutdown()
}

// Shutdown stops every registered component under the shared deadline.
// A failing component is logged and does not block the ones after it.
func (sm *ShutdownManager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	for _, st := range sm.stages {
		if err := st.s.Shutdown(ctx); err != nil {
			sm.logger.Warn("Component shutdown error", "component", st.name, "error", err)
			continue
		}
		sm.logger.Info("Component stopped", "component", st.name)
	}

	sm.logger.Info("Shutdown complete")
}
