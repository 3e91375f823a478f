package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection so integrators can decide whether to retry,
// adjust parameters, or surface a permanent failure.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindLimitExceeded   Kind = "limit_exceeded"
	KindStateConflict   Kind = "state_conflict"
	KindTooSoon         Kind = "too_soon"
	KindUnauthorized    Kind = "unauthorized"
	KindExternalFailure Kind = "external_failure"
)

// Error codes as constants for consistent responses across the service
const (
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeInvalidAddress       = "INVALID_ADDRESS"
	CodeInvalidReferral      = "INVALID_REFERRAL"
	CodeSelfReferral         = "SELF_REFERRAL"
	CodeAlreadyRegistered    = "ALREADY_REGISTERED"
	CodeReferralCapReached   = "REFERRAL_CAP_REACHED"
	CodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	CodeInsufficientStake    = "INSUFFICIENT_STAKE"
	CodeStillLocked          = "STILL_LOCKED"
	CodeNoStake              = "NO_STAKE"
	CodeTradingLimitExceeded = "TRADING_LIMIT_EXCEEDED"
	CodeAccountFlagged       = "ACCOUNT_FLAGGED"
	CodePriorityTooHigh      = "PRIORITY_TOO_HIGH"
	CodeRebalanceTooSoon     = "REBALANCE_TOO_SOON"
	CodeOperationInProgress  = "OPERATION_IN_PROGRESS"
	CodeAmountTooLow         = "AMOUNT_TOO_LOW"
	CodeUnsupportedChain     = "UNSUPPORTED_CHAIN"
	CodeCooldownActive       = "COOLDOWN_ACTIVE"
	CodeUnauthorizedAdapter  = "UNAUTHORIZED_ADAPTER"
	CodeAlreadyProcessed     = "ALREADY_PROCESSED"
	CodeAdminRequired        = "ADMIN_PRIVILEGES_REQUIRED"
	CodeStrategyFailure      = "STRATEGY_FAILURE"
	CodeAdapterFailure       = "ADAPTER_FAILURE"
)

// AppError is the service-wide error type. Every rejection the core issues
// carries a kind plus a stable machine code.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// E builds an AppError.
func E(kind Kind, code, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

// Ef builds an AppError with a formatted message.
func Ef(kind Kind, code, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to an AppError.
func Wrap(kind Kind, code, msg string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg, Err: err}
}

// KindOf returns the kind of err, or empty string for non-app errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// CodeOf returns the machine code of err, or empty string for non-app errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ShouldRetry reports whether retrying the same logical operation can
// succeed. Only failures of external capabilities are retryable; every other
// kind is a deterministic rejection.
func ShouldRetry(err error) bool {
	return KindOf(err) == KindExternalFailure
}
