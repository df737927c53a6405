// Package paymesh lets a request-serving endpoint demand proof of payment
// before doing work, and lets autonomous callers discharge that demand, get
// the work done, and obtain a verifiable record of the exchange.
package paymesh

import (
	"context"

	"github.com/paymesh/paymesh/audit"
	"github.com/paymesh/paymesh/bridge"
	"github.com/paymesh/paymesh/config"
	"github.com/paymesh/paymesh/jobs"
	"github.com/paymesh/paymesh/ledger"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/mesh"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/orchestrator"
	"github.com/paymesh/paymesh/processor"
	"github.com/paymesh/paymesh/proofs"
	"github.com/paymesh/paymesh/signing"
	"github.com/paymesh/paymesh/types"
	"github.com/paymesh/paymesh/verification"
	"github.com/paymesh/paymesh/wallet"
)

// Paymesh wires the payment pipeline together: verification, bridging,
// settlement, proof issuance, job processing, and task routing. Every
// external dependency is an explicit capability; nothing is read from
// ambient configuration.
type Paymesh struct {
	Verifier     *verification.Verifier
	Bridge       *bridge.Bridge
	Wallet       *wallet.Wallet
	Proofs       *proofs.Engine
	Processor    *processor.Processor
	Mesh         *mesh.Mesh
	Orchestrator *orchestrator.Orchestrator

	cfg        *config.Config
	gateway    ledger.Gateway
	signer     signing.Signer
	hasher     signing.Hasher
	registry   jobs.Registry
	sink       audit.Sink
	store      proofs.Store
	caller     mesh.NodeCaller
	fees       bridge.FeeOptimizer
	authorizer bridge.Authorizer
	clock      types.Clock
	log        logger.Logger
	metrics    metrics.Recorder
}

// New assembles a Paymesh instance over a ledger gateway. A nil config
// selects the defaults. Components that require a signer identity (wallet,
// orchestrator, split payer) are only constructed when one is provided.
func New(cfg *config.Config, gateway ledger.Gateway, opts ...Option) (*Paymesh, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}

	p := &Paymesh{
		cfg:     cfg,
		gateway: gateway,
		hasher:  signing.SHA256Hasher{},
		clock:   types.RealClock{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.NewZapLogger(cfg.LogLevel)
	}
	if cfg.EnableMetrics && isNoop(p.metrics) {
		p.metrics = metrics.NewPrometheusRecorder()
	}
	if p.registry == nil {
		p.registry = jobs.NewMemoryRegistry()
	}
	if p.sink == nil {
		p.sink = audit.NewMemorySink()
	}
	if p.caller == nil {
		p.caller = mesh.NewHTTPNodeCaller(cfg.DefaultTimeout)
	}

	p.Verifier = verification.NewVerifier(gateway,
		verification.WithTimeout(cfg.DefaultTimeout),
		verification.WithClock(p.clock),
		verification.WithLogger(p.log),
		verification.WithMetrics(p.metrics),
	)

	bridgeOpts := []bridge.Option{
		bridge.WithDefaultAsset(cfg.DefaultAsset),
		bridge.WithPollInterval(cfg.PollInterval),
		bridge.WithSettleWait(cfg.ConfirmationTimeout),
		bridge.WithClock(p.clock),
		bridge.WithLogger(p.log),
		bridge.WithMetrics(p.metrics),
	}
	if p.signer != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithSigner(p.signer))
	}
	if p.fees != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithFeeOptimizer(p.fees))
	}
	if p.authorizer != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithAuthorizer(p.authorizer))
	}
	p.Bridge = bridge.NewBridge(p.Verifier, gateway, bridgeOpts...)

	proofOpts := []proofs.Option{
		proofs.WithHasher(p.hasher),
		proofs.WithClock(p.clock),
		proofs.WithLogger(p.log),
		proofs.WithMetrics(p.metrics),
	}
	if p.signer != nil {
		proofOpts = append(proofOpts, proofs.WithSigner(p.signer))
	}
	if p.store != nil {
		proofOpts = append(proofOpts, proofs.WithStore(p.store))
	}
	p.Proofs = proofs.NewEngine(proofOpts...)

	p.Processor = processor.NewProcessor(p.Verifier, p.registry, p.sink,
		processor.WithClock(p.clock),
		processor.WithLogger(p.log),
		processor.WithMetrics(p.metrics),
		processor.WithJobTimeout(cfg.JobTimeout),
		processor.WithService(cfg.Service, cfg.Version),
	)

	meshOpts := []mesh.Option{
		mesh.WithPolicy(types.RoutingPolicy(cfg.RoutingPolicy)),
		mesh.WithPrecision(cfg.SplitPrecision),
		mesh.WithClock(p.clock),
		mesh.WithLogger(p.log),
		mesh.WithMetrics(p.metrics),
	}

	if p.signer != nil {
		p.Wallet = wallet.NewWallet(gateway, p.signer,
			wallet.WithClock(p.clock),
			wallet.WithLogger(p.log),
			wallet.WithMetrics(p.metrics),
			wallet.WithPollInterval(cfg.PollInterval),
			wallet.WithWaitTimeout(cfg.ConfirmationTimeout),
			wallet.WithConfirmations(cfg.Confirmations),
		)
		meshOpts = append(meshOpts, mesh.WithPayer(&settlingPayer{wallet: p.Wallet}))
	}

	p.Mesh = mesh.NewMesh(mesh.NewRegistry(), p.caller, meshOpts...)

	if p.Wallet != nil {
		p.Orchestrator = orchestrator.NewOrchestrator(p.Wallet, p.caller,
			orchestrator.WithConfirmations(cfg.Confirmations),
			orchestrator.WithWaitTimeout(cfg.ConfirmationTimeout),
			orchestrator.WithLogger(p.log),
			orchestrator.WithMetrics(p.metrics),
		)
	}

	return p, nil
}

// Config returns the active configuration.
func (p *Paymesh) Config() *config.Config {
	return p.cfg
}

// settlingPayer adapts the wallet into the mesh's payer: a transfer counts
// as done only once the ledger confirms it.
type settlingPayer struct {
	wallet *wallet.Wallet
}

func (s *settlingPayer) Pay(ctx context.Context, to, amount, asset, memo string) (string, error) {
	pending, err := s.wallet.Pay(ctx, to, amount, asset, wallet.WithMemo(memo))
	if err != nil {
		return "", err
	}
	if _, err := pending.Wait(ctx, 0, 0); err != nil {
		return "", err
	}
	return pending.Transaction.Hash, nil
}

func isNoop(r metrics.Recorder) bool {
	_, ok := r.(metrics.NoopRecorder)
	return ok
}

// Version information.
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)

// GetVersion returns version information.
func GetVersion() map[string]any {
	return map[string]any{
		"library_version":  Version,
		"protocol_version": ProtocolVersion,
		"routing_policies": []string{
			string(types.PolicyRoundRobin),
			string(types.PolicyLoadBased),
		},
		"proof_algorithms": []string{"sha256", "keccak256"},
	}
}
