package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymesh/paymesh/ledger"
	"github.com/paymesh/paymesh/types"
	"github.com/paymesh/paymesh/wallet"
)

type fakeSigner struct{ addr string }

func (s *fakeSigner) Address() string { return s.addr }

func (s *fakeSigner) Sign([]byte) ([]byte, error) { return []byte("sig"), nil }

// fakeGateway confirms every broadcast transaction immediately unless
// broadcastErr or pending is set.
type fakeGateway struct {
	mu           sync.Mutex
	hash         string
	broadcastErr error
	pending      bool
	broadcasts   []*types.SignedTransaction
}

func (g *fakeGateway) Broadcast(_ context.Context, tx *types.SignedTransaction) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.broadcastErr != nil {
		return "", g.broadcastErr
	}
	g.broadcasts = append(g.broadcasts, tx)
	return g.hash, nil
}

func (g *fakeGateway) GetTransaction(_ context.Context, txHash string) (*types.LedgerRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if txHash != g.hash {
		return nil, ledger.NotFound(txHash)
	}
	if g.pending {
		return &types.LedgerRecord{TxHash: txHash, Status: types.TxStatusPending}, nil
	}
	return &types.LedgerRecord{
		TxHash:        txHash,
		Status:        types.TxStatusConfirmed,
		Confirmations: 1,
	}, nil
}

type fakeCaller struct {
	mu        sync.Mutex
	notifyErr error
	payloads  []map[string]any
}

func (c *fakeCaller) SubmitTask(context.Context, types.AgentNode, map[string]any) (*types.NodeResponse, error) {
	return nil, errors.New("not used")
}

func (c *fakeCaller) Notify(_ context.Context, _ types.AgentNode, payload map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifyErr != nil {
		return c.notifyErr
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

type fakeClock struct {
	now  time.Time
	fire map[time.Duration]bool
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	if c.fire[d] {
		ch <- c.now
	}
	return ch
}

func imageGenService() types.ServiceTarget {
	return types.ServiceTarget{
		Name:    "image-gen",
		Address: "0xservice",
		Amount:  "0.5",
		Asset:   "USDC",
		Node:    &types.AgentNode{ID: "node-a", Endpoint: "http://a", Available: true},
	}
}

func TestPayForTask_PaysThenNotifies(t *testing.T) {
	gw := &fakeGateway{hash: "0xpaid"}
	caller := &fakeCaller{}
	w := wallet.NewWallet(gw, &fakeSigner{addr: "0xorchestrator"}, wallet.WithClock(&fakeClock{now: time.Now()}))
	o := NewOrchestrator(w, caller)

	ticket, err := o.PayForTask(context.Background(), imageGenService(), types.TaskRequest{
		Type:    "generate",
		Payload: map[string]any{"prompt": "a lighthouse"},
	})
	require.NoError(t, err)

	assert.Equal(t, "0xpaid", ticket.TxHash)
	assert.NotEmpty(t, ticket.JobID)
	assert.Equal(t, "image-gen", ticket.Service)
	assert.True(t, ticket.Notified)
	require.NotNil(t, ticket.Record)
	assert.Equal(t, types.TxStatusConfirmed, ticket.Record.Status)

	// The payment carries the job binding the processor resolves later.
	require.Len(t, gw.broadcasts, 1)
	tx := gw.broadcasts[0].Transaction
	assert.Equal(t, ticket.JobID, tx.Metadata["jobId"])
	assert.Equal(t, "image-gen", tx.Metadata["service"])
	assert.Equal(t, "task:"+ticket.JobID, tx.Memo)

	// The notification carries the settled hash and the task.
	require.Len(t, caller.payloads, 1)
	assert.Equal(t, "0xpaid", caller.payloads[0]["txHash"])
	assert.Equal(t, ticket.JobID, caller.payloads[0]["jobId"])
}

func TestPayForTask_RequiresNode(t *testing.T) {
	w := wallet.NewWallet(&fakeGateway{hash: "0xpaid"}, &fakeSigner{addr: "0xorchestrator"})
	o := NewOrchestrator(w, &fakeCaller{})

	service := imageGenService()
	service.Node = nil

	_, err := o.PayForTask(context.Background(), service, types.TaskRequest{Type: "generate"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))
}

func TestPayForTask_NoNotifyWhenPaymentFails(t *testing.T) {
	gw := &fakeGateway{hash: "0xpaid", broadcastErr: errors.New("rpc down")}
	caller := &fakeCaller{}
	w := wallet.NewWallet(gw, &fakeSigner{addr: "0xorchestrator"})
	o := NewOrchestrator(w, caller)

	_, err := o.PayForTask(context.Background(), imageGenService(), types.TaskRequest{Type: "generate"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBroadcastFailed))
	assert.Empty(t, caller.payloads)
}

func TestPayForTask_NoNotifyWhenUnconfirmed(t *testing.T) {
	gw := &fakeGateway{hash: "0xpaid", pending: true}
	caller := &fakeCaller{}

	// The confirmation deadline fires before any poll tick.
	timeout := 30 * time.Second
	clock := &fakeClock{now: time.Now(), fire: map[time.Duration]bool{timeout: true}}
	w := wallet.NewWallet(gw, &fakeSigner{addr: "0xorchestrator"}, wallet.WithClock(clock))
	o := NewOrchestrator(w, caller, WithWaitTimeout(timeout))

	_, err := o.PayForTask(context.Background(), imageGenService(), types.TaskRequest{Type: "generate"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfirmationTimeout))
	assert.Empty(t, caller.payloads)
}

func TestPayForTask_NotifyFailureAfterSettlement(t *testing.T) {
	gw := &fakeGateway{hash: "0xpaid"}
	caller := &fakeCaller{notifyErr: errors.New("agent offline")}
	w := wallet.NewWallet(gw, &fakeSigner{addr: "0xorchestrator"}, wallet.WithClock(&fakeClock{now: time.Now()}))
	o := NewOrchestrator(w, caller)

	_, err := o.PayForTask(context.Background(), imageGenService(), types.TaskRequest{Type: "generate"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrNodeUnreachable))

	// The error names the settled transaction so the caller can reconcile.
	assert.Contains(t, err.Error(), "0xpaid")
	assert.Contains(t, err.Error(), "settled")
}
