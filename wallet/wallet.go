// Package wallet constructs, signs, and broadcasts payment transactions on
// behalf of one caller identity, and waits for their confirmation.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paymesh/paymesh/ledger"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
)

const (
	// DefaultPollInterval is the confirmation polling cadence. Wait never
	// queries the ledger faster than this.
	DefaultPollInterval = 2 * time.Second

	// DefaultWaitTimeout bounds a confirmation wait.
	DefaultWaitTimeout = 120 * time.Second

	// DefaultConfirmations is the confirmation count required when the
	// caller does not ask for more.
	DefaultConfirmations = 1
)

// Wallet pays recipients through the ledger gateway using the configured
// signer identity.
type Wallet struct {
	gateway       ledger.Gateway
	signer        signing.Signer
	clock         types.Clock
	log           logger.Logger
	metrics       metrics.Recorder
	pollInterval  time.Duration
	waitTimeout   time.Duration
	confirmations int
}

// Option configures a Wallet.
type Option func(*Wallet)

func WithClock(c types.Clock) Option {
	return func(w *Wallet) { w.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(w *Wallet) { w.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(w *Wallet) { w.metrics = r }
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Wallet) { w.pollInterval = d }
}

func WithWaitTimeout(d time.Duration) Option {
	return func(w *Wallet) { w.waitTimeout = d }
}

func WithConfirmations(n int) Option {
	return func(w *Wallet) { w.confirmations = n }
}

// NewWallet creates a wallet bound to a signer identity and a ledger
// gateway.
func NewWallet(gateway ledger.Gateway, signer signing.Signer, opts ...Option) *Wallet {
	w := &Wallet{
		gateway:       gateway,
		signer:        signer,
		clock:         types.RealClock{},
		log:           logger.NoopLogger{},
		metrics:       metrics.NoopRecorder{},
		pollInterval:  DefaultPollInterval,
		waitTimeout:   DefaultWaitTimeout,
		confirmations: DefaultConfirmations,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Address returns the wallet's derived address.
func (w *Wallet) Address() string {
	return w.signer.Address()
}

// PayOption customizes a single payment.
type PayOption func(*types.Transaction)

func WithMemo(memo string) PayOption {
	return func(tx *types.Transaction) { tx.Memo = memo }
}

func WithMetadata(md map[string]string) PayOption {
	return func(tx *types.Transaction) { tx.Metadata = md }
}

// Pay builds, signs, and broadcasts a transfer. The returned pending
// transaction carries the assigned hash and exposes Wait for confirmation.
func (w *Wallet) Pay(ctx context.Context, to, amount, asset string, opts ...PayOption) (*PendingTransaction, error) {
	if amount == "" || asset == "" {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: "payment amount and asset are required",
		}
	}

	tx := &types.Transaction{
		From:          w.signer.Address(),
		To:            to,
		Amount:        amount,
		Asset:         asset,
		Timestamp:     w.clock.Now(),
		SignerAddress: w.signer.Address(),
	}
	for _, opt := range opts {
		opt(tx)
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	sig, err := w.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := w.gateway.Broadcast(ctx, &types.SignedTransaction{
		Transaction: tx,
		Signature:   sig,
	})
	if err != nil {
		w.metrics.IncCounter("broadcast_failed", nil)
		return nil, &types.Error{
			Code:    types.ErrBroadcastFailed,
			Message: fmt.Sprintf("broadcast failed: %v", err),
		}
	}
	tx.Hash = hash

	w.metrics.IncCounter("payment_broadcast", nil)
	w.log.Info("payment broadcast", map[string]any{
		"txHash": hash,
		"to":     to,
		"amount": amount,
		"asset":  asset,
	})

	return &PendingTransaction{Transaction: tx, wallet: w}, nil
}

// PendingTransaction is a broadcast transaction owned by its wallet until
// confirmation.
type PendingTransaction struct {
	Transaction *types.Transaction

	wallet *Wallet
}

// Wait polls the ledger until the transaction reaches the requested
// confirmation count or the timeout elapses. Zero arguments select the
// wallet defaults. The wait returns immediately once the threshold is met
// and fails with a confirmation-timeout error otherwise; it never returns a
// partial or unconfirmed record.
func (p *PendingTransaction) Wait(ctx context.Context, confirmations int, timeout time.Duration) (*types.LedgerRecord, error) {
	w := p.wallet
	if confirmations <= 0 {
		confirmations = w.confirmations
	}
	if timeout <= 0 {
		timeout = w.waitTimeout
	}

	started := w.clock.Now()
	deadline := w.clock.After(timeout)

	for {
		rec, err := w.gateway.GetTransaction(ctx, p.Transaction.Hash)
		switch {
		case err == nil:
			if rec.Status == types.TxStatusConfirmed && rec.Confirmations >= confirmations {
				w.metrics.ObserveLatency("confirmation_wait", w.clock.Now().Sub(started), nil)
				return rec, nil
			}
		case types.IsCode(err, types.ErrNotFound):
			// The ledger may not have indexed the transaction yet.
		default:
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			w.metrics.IncCounter("confirmation_timeout", nil)
			return nil, &types.Error{
				Code:    types.ErrConfirmationTimeout,
				Message: fmt.Sprintf("transaction %s not confirmed within %s", p.Transaction.Hash, timeout),
			}
		case <-w.clock.After(w.pollInterval):
		}
	}
}
