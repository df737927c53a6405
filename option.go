package paymesh

import (
	"github.com/paymesh/paymesh/audit"
	"github.com/paymesh/paymesh/bridge"
	"github.com/paymesh/paymesh/jobs"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/mesh"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/proofs"
	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
)

// Option customizes the capabilities a Paymesh instance is assembled from.
type Option func(*Paymesh)

func WithLogger(l logger.Logger) Option {
	return func(p *Paymesh) { p.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Paymesh) { p.metrics = r }
}

func WithClock(c types.Clock) Option {
	return func(p *Paymesh) { p.clock = c }
}

// WithSigner provides the identity used for paying, settling, and signing
// proofs.
func WithSigner(s signing.Signer) Option {
	return func(p *Paymesh) { p.signer = s }
}

func WithHasher(h signing.Hasher) Option {
	return func(p *Paymesh) { p.hasher = h }
}

func WithJobRegistry(r jobs.Registry) Option {
	return func(p *Paymesh) { p.registry = r }
}

func WithAuditSink(s audit.Sink) Option {
	return func(p *Paymesh) { p.sink = s }
}

func WithProofStore(s proofs.Store) Option {
	return func(p *Paymesh) { p.store = s }
}

func WithNodeCaller(c mesh.NodeCaller) Option {
	return func(p *Paymesh) { p.caller = c }
}

func WithFeeOptimizer(f bridge.FeeOptimizer) Option {
	return func(p *Paymesh) { p.fees = f }
}

func WithAuthorizer(a bridge.Authorizer) Option {
	return func(p *Paymesh) { p.authorizer = a }
}
