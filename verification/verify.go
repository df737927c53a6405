// Package verification decides whether a claimed payment is backed by a
// confirmed ledger transaction matching the expected terms.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/paymesh/paymesh/ledger"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/types"
)

// Reasons attached to invalid receipts, in the order they are checked.
const (
	ReasonNotFound       = "not found"
	ReasonAmountMismatch = "amount mismatch"
	ReasonAssetMismatch  = "asset mismatch"
	ReasonNotConfirmed   = "not confirmed"
	ReasonExpired        = "expired"
)

// Verifier checks claimed payments against the ledger. All expected-invalid
// outcomes are returned as invalid receipts; only transport faults surface
// as errors.
type Verifier struct {
	gateway ledger.Gateway
	timeout time.Duration
	clock   types.Clock
	log     logger.Logger
	metrics metrics.Recorder
}

// Option configures a Verifier.
type Option func(*Verifier)

func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.timeout = d }
}

func WithClock(c types.Clock) Option {
	return func(v *Verifier) { v.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(v *Verifier) { v.metrics = r }
}

// NewVerifier creates a verifier over the given ledger gateway.
func NewVerifier(gateway ledger.Gateway, opts ...Option) *Verifier {
	v := &Verifier{
		gateway: gateway,
		timeout: 30 * time.Second,
		clock:   types.RealClock{},
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify fetches the ledger record for txHash and compares it field-for-field
// against the expected terms. Checks run in a fixed order: presence, amount,
// asset, confirmation status, and finally expiry. Amount and asset are exact
// string matches with no numeric tolerance.
func (v *Verifier) Verify(ctx context.Context, txHash, expectedAmount, expectedAsset string) (*types.PaymentReceipt, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	started := v.clock.Now()
	rec, err := v.gateway.GetTransaction(verifyCtx, txHash)
	v.metrics.ObserveLatency("verify", v.clock.Now().Sub(started), nil)
	if err != nil {
		if types.IsCode(err, types.ErrNotFound) {
			v.metrics.IncCounter("verify_invalid", nil)
			return &types.PaymentReceipt{
				Valid:  false,
				Reason: ReasonNotFound,
			}, nil
		}
		v.log.Error("ledger lookup failed", map[string]any{"txHash": txHash, "error": err.Error()})
		return nil, err
	}

	if rec.Amount != expectedAmount {
		v.metrics.IncCounter("verify_invalid", nil)
		return invalidReceipt(rec, ReasonAmountMismatch, expectedAmount, rec.Amount), nil
	}

	if rec.Asset != expectedAsset {
		v.metrics.IncCounter("verify_invalid", nil)
		return invalidReceipt(rec, ReasonAssetMismatch, expectedAsset, rec.Asset), nil
	}

	if rec.Status != types.TxStatusConfirmed {
		v.metrics.IncCounter("verify_invalid", nil)
		return invalidReceipt(rec, ReasonNotConfirmed, string(types.TxStatusConfirmed), string(rec.Status)), nil
	}

	// Expiry is checked last: an expired receipt is invalid even when
	// amount, asset, and status all match.
	if rec.ExpiresAt != nil && v.clock.Now().After(*rec.ExpiresAt) {
		v.metrics.IncCounter("verify_invalid", nil)
		return invalidReceipt(rec, ReasonExpired, "", ""), nil
	}

	v.metrics.IncCounter("verify_valid", map[string]string{"service": rec.Service})
	return receiptFrom(rec, true, ""), nil
}

// WithinFreshness reports whether a receipt's timestamp lies within the
// given freshness window, measured back from now.
func (v *Verifier) WithinFreshness(receipt *types.PaymentReceipt, window time.Duration) bool {
	if receipt == nil || receipt.Timestamp.IsZero() {
		return false
	}
	age := v.clock.Now().Sub(receipt.Timestamp)
	return age >= 0 && age <= window
}

// BatchItem pairs one transaction with its expected terms.
type BatchItem struct {
	TxHash         string
	ExpectedAmount string
	ExpectedAsset  string
}

// BatchVerify verifies multiple payments concurrently, preserving input
// order in the results.
func (v *Verifier) BatchVerify(ctx context.Context, items []BatchItem) ([]*types.PaymentReceipt, error) {
	if len(items) == 0 {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: "batch verification requires at least one item",
		}
	}

	type indexed struct {
		index   int
		receipt *types.PaymentReceipt
		err     error
	}

	resultChan := make(chan indexed, len(items))
	for i, item := range items {
		go func(index int, it BatchItem) {
			receipt, err := v.Verify(ctx, it.TxHash, it.ExpectedAmount, it.ExpectedAsset)
			resultChan <- indexed{index: index, receipt: receipt, err: err}
		}(i, item)
	}

	receipts := make([]*types.PaymentReceipt, len(items))
	errs := make([]error, len(items))
	for range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			receipts[res.index] = res.receipt
			errs[res.index] = res.err
		}
	}

	for _, err := range errs {
		if err != nil {
			return receipts, err
		}
	}
	return receipts, nil
}

// VerifyWithRetry retries transport-level failures up to maxRetries times.
// Non-retryable errors are returned immediately.
func (v *Verifier) VerifyWithRetry(ctx context.Context, txHash, expectedAmount, expectedAsset string, maxRetries int, retryDelay time.Duration) (*types.PaymentReceipt, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-v.clock.After(retryDelay):
			}
		}

		receipt, err := v.Verify(ctx, txHash, expectedAmount, expectedAsset)
		if err == nil {
			return receipt, nil
		}
		if !types.Retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("verification failed after %d attempts: %w", maxRetries+1, lastErr)
}

func invalidReceipt(rec *types.LedgerRecord, reason, expected, received string) *types.PaymentReceipt {
	r := receiptFrom(rec, false, reason)
	r.Expected = expected
	r.Received = received
	return r
}

func receiptFrom(rec *types.LedgerRecord, valid bool, reason string) *types.PaymentReceipt {
	return &types.PaymentReceipt{
		Valid:         valid,
		Reason:        reason,
		Amount:        rec.Amount,
		Asset:         rec.Asset,
		From:          rec.From,
		To:            rec.To,
		BlockNumber:   rec.BlockNumber,
		Status:        rec.Status,
		Confirmations: rec.Confirmations,
		Timestamp:     rec.Timestamp,
		ExpiresAt:     rec.ExpiresAt,
		Service:       rec.Service,
		JobID:         rec.JobID,
		Metadata:      rec.Metadata,
	}
}
