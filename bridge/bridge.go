// Package bridge inspects inbound requests for embedded payment claims,
// enforces optional multi-party authorization, and automates settlement for
// callers that are themselves payers.
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paymesh/paymesh/ledger"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
	"github.com/paymesh/paymesh/verification"
)

// FeeOptimizer produces a fee/gas recommendation ahead of settlement.
type FeeOptimizer interface {
	Estimate(ctx context.Context, tx *types.Transaction) (*types.FeeEstimate, error)
}

// StaticFees is a fee optimizer returning a fixed estimate.
type StaticFees struct {
	GasLimit uint64
	GasPrice string
}

func (f StaticFees) Estimate(context.Context, *types.Transaction) (*types.FeeEstimate, error) {
	return &types.FeeEstimate{GasLimit: f.GasLimit, GasPrice: f.GasPrice}, nil
}

// Authorizer performs the second, independent check for claims that require
// multi-party authorization.
type Authorizer interface {
	Authorize(ctx context.Context, claim *types.PaymentClaim, txHash string) error
}

// Bridge validates payment claims and automates settlement.
type Bridge struct {
	verifier     *verification.Verifier
	gateway      ledger.Gateway
	signer       signing.Signer
	fees         FeeOptimizer
	authorizer   Authorizer
	defaultAsset string
	pollInterval time.Duration
	settleWait   time.Duration
	clock        types.Clock
	log          logger.Logger
	metrics      metrics.Recorder
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithSigner(s signing.Signer) Option {
	return func(b *Bridge) { b.signer = s }
}

func WithFeeOptimizer(f FeeOptimizer) Option {
	return func(b *Bridge) { b.fees = f }
}

func WithAuthorizer(a Authorizer) Option {
	return func(b *Bridge) { b.authorizer = a }
}

func WithDefaultAsset(asset string) Option {
	return func(b *Bridge) { b.defaultAsset = asset }
}

func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) { b.pollInterval = d }
}

func WithSettleWait(d time.Duration) Option {
	return func(b *Bridge) { b.settleWait = d }
}

func WithClock(c types.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(b *Bridge) { b.metrics = r }
}

// NewBridge creates a bridge over a verifier and a ledger gateway.
func NewBridge(verifier *verification.Verifier, gateway ledger.Gateway, opts ...Option) *Bridge {
	b := &Bridge{
		verifier:     verifier,
		gateway:      gateway,
		fees:         StaticFees{GasLimit: 21000, GasPrice: "1000000000"},
		defaultAsset: "USDC",
		pollInterval: 2 * time.Second,
		settleWait:   120 * time.Second,
		clock:        types.RealClock{},
		log:          logger.NoopLogger{},
		metrics:      metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// VerifyRequest parses the payment claim out of a request's payment header
// and checks it on-ledger. When the claim requires multi-party
// authorization, the configured authorizer must also pass; either failure is
// reported with its own reason and no partial success is returned.
func (b *Bridge) VerifyRequest(ctx context.Context, req *types.PaymentRequest) (*types.RequestVerification, error) {
	claim, reason := b.parseClaim(req)
	if reason != "" {
		b.metrics.IncCounter("request_invalid", nil)
		return &types.RequestVerification{Valid: false, Reason: reason}, nil
	}

	receipt, err := b.verifier.Verify(ctx, req.TxHash, claim.Amount, claim.Asset)
	if err != nil {
		return nil, err
	}
	if !receipt.Valid {
		b.metrics.IncCounter("request_invalid", nil)
		return &types.RequestVerification{
			Valid:   false,
			Reason:  receipt.Reason,
			Receipt: receipt,
		}, nil
	}

	if claim.RequireMultiSig {
		if b.authorizer == nil {
			b.metrics.IncCounter("request_invalid", nil)
			return &types.RequestVerification{
				Valid:  false,
				Reason: types.ReasonMultiSigFailed,
			}, nil
		}
		if err := b.authorizer.Authorize(ctx, claim, req.TxHash); err != nil {
			b.log.Warn("multi-signature check failed", map[string]any{
				"txHash": req.TxHash,
				"error":  err.Error(),
			})
			b.metrics.IncCounter("request_invalid", nil)
			return &types.RequestVerification{
				Valid:  false,
				Reason: types.ReasonMultiSigFailed,
			}, nil
		}
	}

	b.metrics.IncCounter("request_valid", nil)
	return &types.RequestVerification{
		Valid:   true,
		Payment: claim,
		Receipt: receipt,
	}, nil
}

// parseClaim extracts the claim from the request headers. The returned
// reason is empty when parsing succeeded.
func (b *Bridge) parseClaim(req *types.PaymentRequest) (*types.PaymentClaim, string) {
	header := strings.TrimSpace(req.PaymentHeader)
	if header == "" {
		return nil, types.ReasonMissingPaymentHeader
	}

	fields := strings.Fields(header)
	amount := fields[0]
	asset := b.defaultAsset
	if len(fields) > 1 {
		asset = fields[1]
	}

	if req.DeadlineMillis > 0 {
		deadline := time.UnixMilli(req.DeadlineMillis)
		if b.clock.Now().After(deadline) {
			return nil, verification.ReasonExpired
		}
	}

	return &types.PaymentClaim{
		Amount:          amount,
		Asset:           asset,
		Metadata:        req.Metadata,
		RequireMultiSig: req.RequireMultiSig,
		Timestamp:       b.clock.Now(),
	}, ""
}

// AutomateSettlement obtains a fee estimate, broadcasts the settlement
// transaction, and blocks until the ledger reports it settled. Unlike
// verification, settlement is an action with side effects, so failures
// propagate as errors rather than invalid results. Latency is the receipt
// timestamp minus the payment timestamp and is reported on success.
func (b *Bridge) AutomateSettlement(ctx context.Context, payment *types.Transaction) (*types.SettlementResult, error) {
	if b.signer == nil {
		return nil, &types.Error{
			Code:    types.ErrSettlementFailed,
			Message: "no signer configured for settlement",
		}
	}

	estimate, err := b.fees.Estimate(ctx, payment)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrSettlementFailed,
			Message: fmt.Sprintf("fee estimation failed: %v", err),
		}
	}
	if payment.Metadata == nil {
		payment.Metadata = make(map[string]string)
	}
	payment.Metadata["gasLimit"] = strconv.FormatUint(estimate.GasLimit, 10)
	payment.Metadata["gasPrice"] = estimate.GasPrice

	payload := []byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		payment.From, payment.To, payment.Amount, payment.Asset, payment.Timestamp.UnixMilli()))
	sig, err := b.signer.Sign(payload)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrSettlementFailed,
			Message: fmt.Sprintf("signing settlement: %v", err),
		}
	}

	hash, err := b.gateway.Broadcast(ctx, &types.SignedTransaction{
		Transaction: payment,
		Signature:   sig,
	})
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrBroadcastFailed,
			Message: fmt.Sprintf("settlement broadcast failed: %v", err),
		}
	}
	payment.Hash = hash

	rec, err := b.waitSettled(ctx, hash)
	if err != nil {
		return nil, err
	}

	latency := rec.Timestamp.Sub(payment.Timestamp)
	b.metrics.ObserveLatency("settlement", latency, nil)
	b.log.Info("settlement confirmed", map[string]any{
		"txHash":  hash,
		"latency": latency.String(),
	})

	return &types.SettlementResult{
		Success: true,
		TxHash:  hash,
		Receipt: settledReceipt(rec),
		Latency: latency,
	}, nil
}

func (b *Bridge) waitSettled(ctx context.Context, txHash string) (*types.LedgerRecord, error) {
	deadline := b.clock.After(b.settleWait)

	for {
		rec, err := b.gateway.GetTransaction(ctx, txHash)
		switch {
		case err == nil:
			if rec.Status == types.TxStatusConfirmed {
				return rec, nil
			}
			if rec.Status == types.TxStatusFailed {
				return nil, &types.Error{
					Code:    types.ErrSettlementFailed,
					Message: fmt.Sprintf("settlement transaction %s failed on ledger", txHash),
				}
			}
		case types.IsCode(err, types.ErrNotFound):
			// Not indexed yet, keep polling.
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, &types.Error{
				Code:    types.ErrConfirmationTimeout,
				Message: fmt.Sprintf("settlement %s not confirmed within %s", txHash, b.settleWait),
			}
		case <-b.clock.After(b.pollInterval):
		}
	}
}

func settledReceipt(rec *types.LedgerRecord) *types.PaymentReceipt {
	return &types.PaymentReceipt{
		Valid:         true,
		Amount:        rec.Amount,
		Asset:         rec.Asset,
		From:          rec.From,
		To:            rec.To,
		BlockNumber:   rec.BlockNumber,
		Status:        rec.Status,
		Confirmations: rec.Confirmations,
		Timestamp:     rec.Timestamp,
		Service:       rec.Service,
		JobID:         rec.JobID,
		Metadata:      rec.Metadata,
	}
}
