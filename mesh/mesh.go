// Package mesh routes paid work across cooperating service nodes, splits
// payments across multiple recipients, and coordinates multi-agent
// workflows with a shared budget.
package mesh

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/paymesh/paymesh/logger"
	"github.com/paymesh/paymesh/metrics"
	"github.com/paymesh/paymesh/types"
)

// Payer executes and settles one transfer, returning the transaction hash.
// The mesh treats settlement as part of the transfer: a returned hash means
// the payment is confirmed.
type Payer interface {
	Pay(ctx context.Context, to, amount, asset, memo string) (string, error)
}

// NodeCaller dispatches task payloads and notifications to node endpoints.
type NodeCaller interface {
	SubmitTask(ctx context.Context, node types.AgentNode, payload map[string]any) (*types.NodeResponse, error)
	Notify(ctx context.Context, node types.AgentNode, payload map[string]any) error
}

var oneHundred = decimal.NewFromInt(100)

// Mesh routes tasks and fans payments out across recipients.
type Mesh struct {
	registry  *Registry
	caller    NodeCaller
	payer     Payer
	policy    types.RoutingPolicy
	precision int32
	pick      func(n int) int
	clock     types.Clock
	log       logger.Logger
	metrics   metrics.Recorder
}

// Option configures a Mesh.
type Option func(*Mesh)

func WithPayer(p Payer) Option {
	return func(m *Mesh) { m.payer = p }
}

func WithPolicy(policy types.RoutingPolicy) Option {
	return func(m *Mesh) { m.policy = policy }
}

func WithPrecision(places int32) Option {
	return func(m *Mesh) { m.precision = places }
}

// WithPick overrides the random index choice used by the round-robin
// policy. Tests use it to make selection deterministic.
func WithPick(pick func(n int) int) Option {
	return func(m *Mesh) { m.pick = pick }
}

func WithClock(c types.Clock) Option {
	return func(m *Mesh) { m.clock = c }
}

func WithLogger(l logger.Logger) Option {
	return func(m *Mesh) { m.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Mesh) { m.metrics = r }
}

// NewMesh creates a mesh over a node registry and a node caller.
func NewMesh(registry *Registry, caller NodeCaller, opts ...Option) *Mesh {
	m := &Mesh{
		registry:  registry,
		caller:    caller,
		policy:    types.PolicyRoundRobin,
		precision: 6,
		pick:      rand.IntN,
		clock:     types.RealClock{},
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry exposes the mesh's node registry.
func (m *Mesh) Registry() *Registry {
	return m.registry
}

// RouteTask selects a node for the task under the configured policy and
// dispatches it. Zero candidate nodes is a fatal error.
func (m *Mesh) RouteTask(ctx context.Context, task *types.Task) (*types.RouteResult, error) {
	node, err := m.selectNode(task.Capability)
	if err != nil {
		return nil, err
	}

	taskID := task.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	payload := map[string]any{
		"taskId":  taskID,
		"type":    task.Type,
		"payload": task.Payload,
	}
	resp, err := m.caller.SubmitTask(ctx, node, payload)
	if err != nil {
		m.metrics.IncCounter("route_failed", nil)
		return nil, &types.Error{
			Code:    types.ErrNodeUnreachable,
			Message: fmt.Sprintf("task submission to node %s failed: %v", node.ID, err),
		}
	}

	m.metrics.IncCounter("task_routed", nil)
	m.log.Debug("task routed", map[string]any{"taskId": taskID, "nodeId": node.ID})
	return &types.RouteResult{
		NodeID: node.ID,
		TaskID: taskID,
		Result: resp,
	}, nil
}

// selectNode applies the routing policy over a consistent snapshot of the
// registry. "round-robin" is uniformly random among available nodes, a
// fairness approximation kept under its historical name; "load-based" picks
// the lowest load; any other policy falls back to the first node.
func (m *Mesh) selectNode(capability string) (types.AgentNode, error) {
	candidates := m.registry.Available(capability)
	if len(candidates) == 0 {
		return types.AgentNode{}, &types.Error{
			Code:    types.ErrNoAvailableNodes,
			Message: "no available nodes",
		}
	}

	// Stable order so policy behavior does not depend on map iteration.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	switch m.policy {
	case types.PolicyRoundRobin:
		return candidates[m.pick(len(candidates))], nil
	case types.PolicyLoadBased:
		best := candidates[0]
		for _, node := range candidates[1:] {
			if node.Load < best.Load {
				best = node
			}
		}
		return best, nil
	default:
		return candidates[0], nil
	}
}

// SplitPayment fans a payment out across recipients by percentage share.
// The share sum must equal exactly 100 before any transfer is issued.
// Transfers run concurrently; the aggregate result is returned only once all
// have settled, and every member failure is surfaced.
func (m *Mesh) SplitPayment(ctx context.Context, payment *types.PaymentClaim, recipients []types.Recipient) (*types.SplitResult, error) {
	if err := payment.Validate(); err != nil {
		return nil, &types.Error{Code: types.ErrInvalidPayload, Message: err.Error()}
	}
	if len(recipients) == 0 {
		return nil, &types.Error{Code: types.ErrInvalidSplit, Message: "split requires at least one recipient"}
	}
	if m.payer == nil {
		return nil, &types.Error{Code: types.ErrInvalidConfig, Message: "no payer configured for splits"}
	}

	amount, err := decimal.NewFromString(payment.Amount)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("unparseable payment amount %q", payment.Amount),
		}
	}

	shares := make([]decimal.Decimal, len(recipients))
	sum := decimal.Zero
	for i, rcpt := range recipients {
		share, err := decimal.NewFromString(rcpt.Share)
		if err != nil {
			return nil, &types.Error{
				Code:    types.ErrInvalidSplit,
				Message: fmt.Sprintf("unparseable share %q for recipient %s", rcpt.Share, rcpt.To),
			}
		}
		if share.IsNegative() || share.GreaterThan(oneHundred) {
			return nil, &types.Error{
				Code:    types.ErrInvalidSplit,
				Message: fmt.Sprintf("share %s for recipient %s is outside 0-100", rcpt.Share, rcpt.To),
			}
		}
		shares[i] = share
		sum = sum.Add(share)
	}
	if !sum.Equal(oneHundred) {
		return nil, &types.Error{
			Code:    types.ErrInvalidSplit,
			Message: fmt.Sprintf("split shares sum to %s, expected exactly 100", sum),
		}
	}

	splits := make([]*types.PaymentSplit, len(recipients))
	for i, rcpt := range recipients {
		splits[i] = &types.PaymentSplit{
			To:     rcpt.To,
			Amount: amount.Mul(shares[i]).Div(oneHundred).Round(m.precision).StringFixed(m.precision),
			Asset:  payment.Asset,
			Share:  shares[i].String(),
			Memo:   rcpt.Memo,
		}
	}

	type transfer struct {
		index  int
		txHash string
		err    error
	}
	resultChan := make(chan transfer, len(splits))
	for i, split := range splits {
		go func(index int, s *types.PaymentSplit) {
			txHash, err := m.payer.Pay(ctx, s.To, s.Amount, s.Asset, s.Memo)
			resultChan <- transfer{index: index, txHash: txHash, err: err}
		}(i, split)
	}

	var failures []error
	for range splits {
		res := <-resultChan
		if res.err != nil {
			failures = append(failures, fmt.Errorf("transfer to %s: %w", splits[res.index].To, res.err))
			continue
		}
		splits[res.index].TxHash = res.txHash
	}
	if len(failures) > 0 {
		m.metrics.IncCounter("split_failed", nil)
		return nil, errors.Join(failures...)
	}

	m.metrics.IncCounter("split_settled", nil)
	return &types.SplitResult{
		OriginalAmount: payment.Amount,
		Asset:          payment.Asset,
		Splits:         splits,
		Timestamp:      m.clock.Now(),
	}, nil
}

// CoordinateTask divides the task's budget evenly across its agents and
// routes one subtask per agent concurrently, each annotated with its step
// index. Coordination is complete only when every subtask routed; any
// member failure fails the whole coordination, with all failures surfaced.
func (m *Mesh) CoordinateTask(ctx context.Context, task *types.CoordinatedTask) (*types.CoordinationResult, error) {
	if len(task.Agents) == 0 {
		return nil, &types.Error{Code: types.ErrInvalidPayload, Message: "coordinated task lists no agents"}
	}

	budget, err := decimal.NewFromString(task.Budget)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("unparseable budget %q", task.Budget),
		}
	}
	perAgent := budget.Div(decimal.NewFromInt(int64(len(task.Agents))))

	taskID := task.ID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	steps := make([]*types.RouteResult, len(task.Agents))
	stepErrs := make([]error, len(task.Agents))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, agent := range task.Agents {
		g.Go(func() error {
			subtask := &types.Task{
				ID:   fmt.Sprintf("%s-%d", taskID, i),
				Type: task.Workflow,
				Payload: map[string]any{
					"agent":  agent,
					"step":   i,
					"budget": perAgent.String(),
					"asset":  task.Asset,
					"parent": task.Payload,
				},
			}
			result, err := m.RouteTask(groupCtx, subtask)
			if err != nil {
				stepErrs[i] = fmt.Errorf("subtask %d for agent %s: %w", i, agent, err)
				return stepErrs[i]
			}
			result.Step = i
			steps[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.metrics.IncCounter("coordination_failed", nil)
		return nil, errors.Join(nonNil(stepErrs)...)
	}

	m.metrics.IncCounter("coordination_completed", nil)
	return &types.CoordinationResult{
		TaskID:    taskID,
		Workflow:  task.Workflow,
		Agents:    task.Agents,
		Steps:     steps,
		Completed: true,
	}, nil
}

func nonNil(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
