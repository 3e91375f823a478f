package treasury_rebalance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aurum-ledger/aurum_service/internal/domain/services/treasury"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

// Worker triggers treasury rebalances on a cron schedule. The engine's
// own interval check decides whether a tick actually rebalances, so an
// aggressive schedule degrades to cheap no-ops.
type Worker struct {
	engine   *treasury.Engine
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
}

func NewWorker(cfg config.TreasuryConfig, engine *treasury.Engine, logger *zap.Logger) *Worker {
	return &Worker{
		engine:   engine,
		cron:     cron.New(),
		schedule: cfg.RebalanceCron,
		logger:   logger,
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := w.engine.Rebalance(ctx)
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindTooSoon) {
				w.logger.Debug("Rebalance tick skipped, interval not elapsed")
				return
			}
			w.logger.Error("Scheduled rebalance failed", zap.Error(err))
			return
		}

		w.logger.Info("Scheduled rebalance completed",
			zap.String("token", report.Token),
			zap.String("total_value", report.TotalValue.String()))
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Treasury rebalance worker started", zap.String("schedule", w.schedule))
	return nil
}

// Shutdown stops the scheduler and waits for a running tick to finish
func (w *Worker) Shutdown(ctx context.Context) error {
	stopCtx := w.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	w.logger.Info("Treasury rebalance worker stopped")
	return nil
}
