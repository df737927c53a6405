// Package orchestrator is the caller-side composition over wallet and
// notification: pay a service for a task, wait for settlement, then tell
// the paid agent to begin work.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/mesh"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/types"
	"github.com/paymesh/paymesh/wallet"
)

// Orchestrator pays for tasks and notifies the hired agents.
type Orchestrator struct {
	wallet        *wallet.Wallet
	caller        mesh.NodeCaller
	confirmations int
	waitTimeout   time.Duration
	log           logger.Logger
	metrics       metrics.Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithConfirmations(n int) Option {
	return func(o *Orchestrator) { o.confirmations = n }
}

func WithWaitTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.waitTimeout = d }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// NewOrchestrator creates an orchestrator over a wallet and a node caller.
func NewOrchestrator(w *wallet.Wallet, caller mesh.NodeCaller, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		wallet:        w,
		caller:        caller,
		confirmations: wallet.DefaultConfirmations,
		waitTimeout:   wallet.DefaultWaitTimeout,
		log:           logger.NoopLogger{},
		metrics:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PayForTask pays the named service, waits for the configured confirmation
// count, and only then notifies the paid agent with the transaction hash,
// job id, and task payload. If confirmation is not reached, the operation
// fails without notifying: payment and notification are never decoupled.
func (o *Orchestrator) PayForTask(ctx context.Context, service types.ServiceTarget, task types.TaskRequest) (*types.TaskTicket, error) {
	if service.Node == nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("service %s has no node to notify", service.Name),
		}
	}

	jobID := uuid.NewString()
	pending, err := o.wallet.Pay(ctx, service.Address, service.Amount, service.Asset,
		wallet.WithMemo("task:"+jobID),
		wallet.WithMetadata(map[string]string{
			"jobId":   jobID,
			"service": service.Name,
		}),
	)
	if err != nil {
		return nil, err
	}

	record, err := pending.Wait(ctx, o.confirmations, o.waitTimeout)
	if err != nil {
		o.metrics.IncCounter("task_payment_unconfirmed", nil)
		return nil, err
	}

	payload := map[string]any{
		"txHash": pending.Transaction.Hash,
		"jobId":  jobID,
		"task":   task,
	}
	if err := o.caller.Notify(ctx, *service.Node, payload); err != nil {
		return nil, &types.Error{
			Code:    types.ErrNodeUnreachable,
			Message: fmt.Sprintf("payment %s settled but agent notification failed: %v", pending.Transaction.Hash, err),
		}
	}

	o.metrics.IncCounter("task_hired", nil)
	o.log.Info("task paid and agent notified", map[string]any{
		"txHash":  pending.Transaction.Hash,
		"jobId":   jobID,
		"service": service.Name,
	})

	return &types.TaskTicket{
		TxHash:   pending.Transaction.Hash,
		JobID:    jobID,
		Service:  service.Name,
		Record:   record,
		Notified: true,
	}, nil
}
