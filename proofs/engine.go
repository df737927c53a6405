// Package proofs issues and verifies content-addressed proofs of settled
// transactions and folds proof sets into audit summaries.
package proofs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
)

// Store persists issued proofs. Optional.
type Store interface {
	Save(ctx context.Context, proof *types.Proof) error
}

// Engine generates and verifies proofs. The digest is computed over the
// canonical JSON serialization of the snapshot with the configured 256-bit
// hash.
type Engine struct {
	hasher   signing.Hasher
	signer   signing.Signer
	verifier signing.Verifier
	store    Store
	clock    types.Clock
	log      logger.Logger
	metrics  metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

func WithHasher(h signing.Hasher) Option {
	return func(e *Engine) { e.hasher = h }
}

func WithSigner(s signing.Signer) Option {
	return func(e *Engine) { e.signer = s }
}

func WithVerifier(v signing.Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

func WithClock(c types.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// NewEngine creates a proof engine. The default digest is SHA-256 and the
// default signature check is ECDSA address recovery.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		hasher:   signing.SHA256Hasher{},
		verifier: signing.EcdsaVerifier{},
		clock:    types.RealClock{},
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateProof builds the canonical snapshot of a settled transaction,
// computes its content digest, and signs it when the transaction carries a
// signer. The proof is persisted if a store is configured.
func (e *Engine) GenerateProof(ctx context.Context, tx *types.Transaction) (*types.Proof, error) {
	if tx == nil || tx.Hash == "" {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: "proof generation requires a broadcast transaction",
		}
	}

	data := types.ProofData{
		TxHash:    tx.Hash,
		Timestamp: tx.Timestamp,
		Amount:    tx.Amount,
		Asset:     tx.Asset,
		From:      tx.From,
		To:        tx.To,
		Metadata:  tx.Metadata,
	}

	canonical, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding proof snapshot: %w", err)
	}

	proof := &types.Proof{
		Hash:      hex.EncodeToString(e.hasher.Sum(canonical)),
		Algorithm: e.hasher.Algorithm(),
		Timestamp: e.clock.Now(),
		Data:      data,
	}

	if tx.SignerAddress != "" && e.signer != nil {
		sig, err := e.signer.Sign(canonical)
		if err != nil {
			return nil, fmt.Errorf("signing proof: %w", err)
		}
		proof.Signature = sig
		proof.Signer = e.signer.Address()
	}

	if e.store != nil {
		if err := e.store.Save(ctx, proof); err != nil {
			return nil, fmt.Errorf("persisting proof: %w", err)
		}
	}

	e.metrics.IncCounter("proof_generated", nil)
	return proof, nil
}

// VerifyProof recomputes the digest over the proof's snapshot and requires
// byte-exact equality with the recorded hash; a present signature must also
// validate against the snapshot. Pure check, no side effects.
func (e *Engine) VerifyProof(proof *types.Proof) bool {
	if proof == nil {
		return false
	}

	canonical, err := json.Marshal(proof.Data)
	if err != nil {
		return false
	}
	if hex.EncodeToString(e.hasher.Sum(canonical)) != proof.Hash {
		return false
	}

	if len(proof.Signature) > 0 {
		return e.verifier.Verify(canonical, proof.Signature, proof.Signer)
	}
	return true
}

// GenerateAuditSummary folds a proof set into totals: transaction count,
// numeric amount sums overall and per asset, per-service counts, and the
// inclusive timestamp range. An empty set yields a zero summary.
func (e *Engine) GenerateAuditSummary(set []*types.Proof) *types.AuditSummary {
	summary := &types.AuditSummary{
		TotalAmount: "0",
	}
	if len(set) == 0 {
		return summary
	}

	total := decimal.Zero
	byAsset := make(map[string]decimal.Decimal)
	byService := make(map[string]int)

	for _, proof := range set {
		summary.TotalTransactions++

		amount, err := decimal.NewFromString(proof.Data.Amount)
		if err == nil {
			total = total.Add(amount)
			byAsset[proof.Data.Asset] = byAsset[proof.Data.Asset].Add(amount)
		} else {
			e.log.Warn("unparseable proof amount skipped in summary", map[string]any{
				"txHash": proof.Data.TxHash,
				"amount": proof.Data.Amount,
			})
		}

		if service := proof.Data.Metadata["service"]; service != "" {
			byService[service]++
		}

		ts := proof.Data.Timestamp
		if summary.EarliestTimestamp == nil || ts.Before(*summary.EarliestTimestamp) {
			t := ts
			summary.EarliestTimestamp = &t
		}
		if summary.LatestTimestamp == nil || ts.After(*summary.LatestTimestamp) {
			t := ts
			summary.LatestTimestamp = &t
		}
	}

	summary.TotalAmount = total.String()
	if len(byAsset) > 0 {
		summary.ByAsset = make(map[string]string, len(byAsset))
		for asset, sum := range byAsset {
			summary.ByAsset[asset] = sum.String()
		}
	}
	if len(byService) > 0 {
		summary.ByService = byService
	}
	return summary
}
