package graceful

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aurum-ledger/aurum_service/pkg/logger"
)

func TestShutdown_RunsStagesInRegistrationOrder(t *testing.T) {
	sm := NewShutdownManager(time.Second, logger.NewNop())

	var order []string
	for _, name := range []string{"worker", "server", "store"} {
		name := name
		sm.RegisterFunc(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	sm.Shutdown()
	assert.Equal(t, []string{"worker", "server", "store"}, order)
}

func TestShutdown_FailingStageDoesNotBlockLaterOnes(t *testing.T) {
	sm := NewShutdownManager(time.Second, logger.NewNop())

	var storeClosed bool
	sm.RegisterFunc("worker", func(context.Context) error { return errors.New("stuck tick") })
	sm.RegisterFunc("store", func(context.Context) error {
		storeClosed = true
		return nil
	})

	sm.Shutdown()
	assert.True(t, storeClosed)
}

func TestShutdown_StagesShareTheDeadline(t *testing.T) {
	sm := NewShutdownManager(10*time.Millisecond, logger.NewNop())

	var sawDeadline bool
	sm.RegisterFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline = true
		return ctx.Err()
	})

	sm.Shutdown()
	assert.True(t, sawDeadline)
}
