// Package jobs defines the job registry capability: the external system that
// owns job lifecycles. An in-memory registry is provided for embedding and
// for tests.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paymesh/paymesh/types"
)

// Job is a handle on one unit of paid work. SetContext must be called before
// Run so the job can observe cancellation.
type Job interface {
	ID() string
	Type() string
	SetContext(ctx context.Context)
	Run() (string, error)
	Status() types.JobStatus
}

// Registry resolves job ids to job handles. Get on an unknown id returns a
// typed error with code types.ErrJobNotFound.
type Registry interface {
	Get(id string) (Job, error)
}

// RunFunc is the work body of a FuncJob.
type RunFunc func(ctx context.Context, params map[string]any) (string, error)

// FuncJob adapts a function into a Job with monotonic status tracking.
type FuncJob struct {
	id     string
	typ    string
	params map[string]any
	run    RunFunc

	mu      sync.Mutex
	ctx     context.Context
	status  types.JobStatus
	result  string
	started time.Time
	ended   time.Time
}

// NewFuncJob builds a pending job around run.
func NewFuncJob(id, typ string, params map[string]any, run RunFunc) *FuncJob {
	return &FuncJob{
		id:     id,
		typ:    typ,
		params: params,
		run:    run,
		status: types.JobStatusPending,
		ctx:    context.Background(),
	}
}

func (j *FuncJob) ID() string   { return j.id }
func (j *FuncJob) Type() string { return j.typ }

func (j *FuncJob) SetContext(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ctx = ctx
}

func (j *FuncJob) Status() types.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Run executes the job body, enforcing monotonic status transitions.
func (j *FuncJob) Run() (string, error) {
	j.mu.Lock()
	if !j.status.CanTransition(types.JobStatusRunning) {
		status := j.status
		j.mu.Unlock()
		return "", fmt.Errorf("job %s cannot start from status %s", j.id, status)
	}
	j.status = types.JobStatusRunning
	j.started = time.Now()
	ctx := j.ctx
	j.mu.Unlock()

	result, err := j.run(ctx, j.params)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.ended = time.Now()
	if err != nil {
		j.status = types.JobStatusFailed
		return "", err
	}
	j.status = types.JobStatusCompleted
	j.result = result
	return result, nil
}

// MemoryRegistry is a concurrency-safe in-process job registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]Job)}
}

// Register adds a job under its id, replacing any previous entry.
func (r *MemoryRegistry) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID()] = job
}

func (r *MemoryRegistry) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, &types.Error{
			Code:    types.ErrJobNotFound,
			Message: fmt.Sprintf("job %s not found", id),
		}
	}
	return job, nil
}
