// Package processor orchestrates one payment-backed job execution: verify
// the payment, run the job under a hard ceiling, and audit the outcome.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/paymesh/paymesh/audit"
	"github.com/paymesh/paymesh/jobs"
	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/types"
	"github.com/paymesh/paymesh/verification"
)

// DefaultJobTimeout is the hard ceiling on one job execution.
const DefaultJobTimeout = 300 * time.Second

// Processor runs paid jobs after verifying their backing payment.
type Processor struct {
	verifier   *verification.Verifier
	registry   jobs.Registry
	sink       audit.Sink
	clock      types.Clock
	log        logger.Logger
	metrics    metrics.Recorder
	jobTimeout time.Duration
	service    string
	version    string
}

// Option configures a Processor.
type Option func(*Processor)

func WithClock(c types.Clock) Option {
	return func(p *Processor) { p.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(p *Processor) { p.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = r }
}

func WithJobTimeout(d time.Duration) Option {
	return func(p *Processor) { p.jobTimeout = d }
}

func WithService(service, version string) Option {
	return func(p *Processor) {
		p.service = service
		p.version = version
	}
}

// NewProcessor creates a processor over a verifier, a job registry, and an
// audit sink.
func NewProcessor(verifier *verification.Verifier, registry jobs.Registry, sink audit.Sink, opts ...Option) *Processor {
	p := &Processor{
		verifier:   verifier,
		registry:   registry,
		sink:       sink,
		clock:      types.RealClock{},
		log:        logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
		jobTimeout: DefaultJobTimeout,
		service:    "paymesh",
		version:    "1.0.0",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPaymentRequest verifies the payment behind txHash, executes the job
// it is bound to, and writes an audit entry as the very last step on every
// path. Invalid payments come back as unsuccessful results; a valid payment
// that cannot be bound to a job is a fatal error, as are unknown jobs and
// executions that overrun the ceiling.
func (p *Processor) ProcessPaymentRequest(ctx context.Context, txHash string, cfg types.JobConfig) (*types.ProcessResult, error) {
	receipt, err := p.verifier.Verify(ctx, txHash, cfg.ExpectedAmount, cfg.ExpectedAsset)
	if err != nil {
		p.writeAudit(ctx, "", txHash, types.JobStatusFailed, "", err.Error())
		return nil, err
	}
	if !receipt.Valid {
		p.metrics.IncCounter("payment_rejected", nil)
		result := &types.ProcessResult{Success: false, Error: receipt.Reason}
		p.writeAudit(ctx, "", txHash, types.JobStatusFailed, "", receipt.Reason)
		return result, nil
	}

	jobID := receipt.Metadata["jobId"]
	if jobID == "" {
		jobID = receipt.JobID
	}
	if jobID == "" {
		// A payment that cannot be bound to work is unprocessable.
		fatal := &types.Error{
			Code:    types.ErrMissingJobID,
			Message: fmt.Sprintf("payment %s carries no job id", txHash),
		}
		p.writeAudit(ctx, "", txHash, types.JobStatusFailed, "", fatal.Message)
		return nil, fatal
	}

	job, err := p.registry.Get(jobID)
	if err != nil {
		p.writeAudit(ctx, jobID, txHash, types.JobStatusFailed, "", err.Error())
		return nil, err
	}

	result, runErr := p.runWithCeiling(ctx, job)
	if runErr != nil {
		if types.IsCode(runErr, types.ErrJobTimeout) || ctx.Err() != nil {
			p.writeAudit(ctx, jobID, txHash, types.JobStatusFailed, "", runErr.Error())
			return nil, runErr
		}
		p.metrics.IncCounter("job_failed", nil)
		out := &types.ProcessResult{Success: false, JobID: jobID, Error: runErr.Error()}
		p.writeAudit(ctx, jobID, txHash, types.JobStatusFailed, "", runErr.Error())
		return out, nil
	}

	p.metrics.IncCounter("job_completed", nil)
	out := &types.ProcessResult{Success: true, JobID: jobID, Result: result}
	p.writeAudit(ctx, jobID, txHash, types.JobStatusCompleted, result, "")
	return out, nil
}

// runWithCeiling races the job against the execution deadline. The deadline
// firing stops the wait without attempting to cancel the external job; the
// buffered channel lets the losing goroutine finish and be collected.
func (p *Processor) runWithCeiling(ctx context.Context, job jobs.Job) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	job.SetContext(runCtx)

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := job.Run()
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.clock.After(p.jobTimeout):
		p.metrics.IncCounter("job_timeout", nil)
		return "", &types.Error{
			Code:    types.ErrJobTimeout,
			Message: fmt.Sprintf("job %s exceeded execution ceiling of %s", job.ID(), p.jobTimeout),
		}
	}
}

// writeAudit appends one entry per processed request. Sink failures are
// logged and never mask the processing outcome.
func (p *Processor) writeAudit(ctx context.Context, jobID, txHash string, status types.JobStatus, result, errMsg string) {
	entry := &types.AuditLogEntry{
		JobID:     jobID,
		TxHash:    txHash,
		Status:    status,
		Timestamp: p.clock.Now(),
		Result:    result,
		Error:     errMsg,
		Service:   p.service,
		Version:   p.version,
	}
	if err := p.sink.Record(ctx, entry); err != nil {
		p.log.Error("audit write failed", map[string]any{
			"txHash": txHash,
			"jobId":  jobID,
			"error":  err.Error(),
		})
	}
}
