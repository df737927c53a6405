package types

import "errors"

// Error is the typed error returned for fatal precondition violations and
// transport faults. Expected-invalid verification outcomes are reported as
// structured results instead, never as errors.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes.
const (
	// Verification reasons. These appear both as invalid-receipt reasons
	// and, for transport-level lookups, as error codes.
	ErrNotFound       = "not_found"
	ErrAmountMismatch = "amount_mismatch"
	ErrAssetMismatch  = "asset_mismatch"
	ErrNotConfirmed   = "not_confirmed"
	ErrExpired        = "expired"

	// Fatal precondition violations. Non-retryable without caller-side
	// correction.
	ErrInvalidSplit     = "invalid_split"
	ErrMissingJobID     = "missing_job_id"
	ErrJobNotFound      = "job_not_found"
	ErrNoAvailableNodes = "no_available_nodes"
	ErrInvalidPayload   = "invalid_payload"
	ErrInvalidConfig    = "invalid_config"

	// Timeout boundaries.
	ErrConfirmationTimeout = "confirmation_timeout"
	ErrJobTimeout          = "job_timeout"

	// Transport / infrastructure faults. Retryability is caller policy.
	ErrLedgerUnavailable = "ledger_unavailable"
	ErrBroadcastFailed   = "broadcast_failed"
	ErrSettlementFailed  = "settlement_failed"
	ErrNodeUnreachable   = "node_unreachable"
)

// Invalid-claim reasons reported by the bridge layer.
const (
	ReasonMissingPaymentHeader = "missing payment header"
	ReasonMultiSigFailed       = "multi-signature authorization failed"
)

// NewError builds a typed error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsCode reports whether err is a *Error carrying the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Retryable reports whether an error is worth retrying. Precondition
// violations and timeouts are not fixed by trying again.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	switch e.Code {
	case ErrInvalidSplit, ErrMissingJobID, ErrJobNotFound, ErrNoAvailableNodes,
		ErrInvalidPayload, ErrInvalidConfig, ErrConfirmationTimeout, ErrJobTimeout:
		return false
	}
	return true
}
