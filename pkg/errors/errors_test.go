package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndCodeSurviveWrapping(t *testing.T) {
	base := Ef(KindLimitExceeded, CodeInsufficientBalance, "balance %d below %d", 10, 50)
	wrapped := fmt.Errorf("settle transfer: %w", base)

	assert.Equal(t, KindLimitExceeded, KindOf(wrapped))
	assert.Equal(t, CodeInsufficientBalance, CodeOf(wrapped))
	assert.True(t, IsKind(wrapped, KindLimitExceeded))
}

func TestNonAppError(t *testing.T) {
	err := fmt.Errorf("plain failure")

	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, "", CodeOf(err))
	assert.False(t, ShouldRetry(err))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(E(KindExternalFailure, CodeAdapterFailure, "relay down")))
	assert.False(t, ShouldRetry(E(KindValidation, CodeInvalidAmount, "negative amount")))
	assert.False(t, ShouldRetry(E(KindTooSoon, CodeCooldownActive, "cooling down")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(KindExternalFailure, CodeStrategyFailure, "read strategy value", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeStrategyFailure)
	assert.Contains(t, err.Error(), "connection refused")
}
