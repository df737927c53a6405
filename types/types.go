// Package types defines the shared data model for the paymesh payment
// pipeline: claims, transactions, receipts, proofs, and the result shapes
// returned by the verification, settlement, and routing services.
package types

import (
	"fmt"
	"time"
)

// TxStatus represents the on-ledger status of a transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// JobStatus represents the lifecycle state of a unit of paid work.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

var jobStatusRank = map[JobStatus]int{
	JobStatusPending:   0,
	JobStatusRunning:   1,
	JobStatusCompleted: 2,
	JobStatusFailed:    2,
}

// CanTransition reports whether a job may move from its current status to
// next. Transitions are monotonic: a job never regresses to an earlier state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	cur, ok := jobStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := jobStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// RoutingPolicy selects how the mesh picks a node for a task.
type RoutingPolicy string

const (
	// PolicyRoundRobin picks uniformly at random among available nodes.
	// The name is kept for compatibility with existing deployments even
	// though the selection is random rather than a strict rotation.
	PolicyRoundRobin RoutingPolicy = "round-robin"

	// PolicyLoadBased picks the available node with the lowest load.
	PolicyLoadBased RoutingPolicy = "load-based"
)

// PaymentClaim is a caller's assertion that payment has been (or will be)
// made for a unit of work.
type PaymentClaim struct {
	Amount          string            `json:"amount" validate:"required"`
	Asset           string            `json:"asset" validate:"required"`
	Recipient       string            `json:"recipient,omitempty"`
	Memo            string            `json:"memo,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RequireMultiSig bool              `json:"requireMultiSig,omitempty"`
	Timestamp       time.Time         `json:"timestamp,omitempty"`
}

// Validate checks the claim's structural invariants.
func (c *PaymentClaim) Validate() error {
	if c.Amount == "" {
		return fmt.Errorf("payment claim amount is required")
	}
	if c.Asset == "" {
		return fmt.Errorf("payment claim asset is required")
	}
	return nil
}

// Transaction is a transfer constructed by a wallet. Hash is empty until the
// transaction has been broadcast to the ledger.
type Transaction struct {
	Hash      string            `json:"hash,omitempty"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Amount    string            `json:"amount"`
	Asset     string            `json:"asset"`
	Memo      string            `json:"memo,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`

	// SignerAddress identifies the key that signed the transaction, when
	// known. Proof generation only attaches a signature for transactions
	// that carry a signer.
	SignerAddress string `json:"signerAddress,omitempty"`
}

// SignedTransaction is a transaction together with its signature, ready for
// broadcast.
type SignedTransaction struct {
	Transaction *Transaction `json:"transaction"`
	Signature   []byte       `json:"signature"`
}

// LedgerRecord is the raw, ledger-reported view of a transaction as returned
// by the ledger gateway.
type LedgerRecord struct {
	TxHash        string            `json:"txHash"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Amount        string            `json:"amount"`
	Asset         string            `json:"asset"`
	Status        TxStatus          `json:"status"`
	BlockNumber   uint64            `json:"blockNumber"`
	Confirmations int               `json:"confirmations"`
	Timestamp     time.Time         `json:"timestamp"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	Service       string            `json:"service,omitempty"`
	JobID         string            `json:"jobId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PaymentReceipt is the outcome of verifying a claimed payment against its
// ledger record. An invalid receipt always carries a Reason; Expected and
// Received are populated for mismatch reasons.
type PaymentReceipt struct {
	Valid         bool              `json:"valid"`
	Reason        string            `json:"reason,omitempty"`
	Expected      string            `json:"expected,omitempty"`
	Received      string            `json:"received,omitempty"`
	Amount        string            `json:"amount,omitempty"`
	Asset         string            `json:"asset,omitempty"`
	From          string            `json:"from,omitempty"`
	To            string            `json:"to,omitempty"`
	BlockNumber   uint64            `json:"blockNumber,omitempty"`
	Status        TxStatus          `json:"status,omitempty"`
	Confirmations int               `json:"confirmations,omitempty"`
	Timestamp     time.Time         `json:"timestamp,omitempty"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	Service       string            `json:"service,omitempty"`
	JobID         string            `json:"jobId,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PaymentRequest is an inbound request carrying a payment claim in its
// header fields. It is what the bridge layer inspects before work is
// admitted.
type PaymentRequest struct {
	// PaymentHeader carries "<amount> <asset>"; the asset may be omitted
	// and defaults to the configured default asset.
	PaymentHeader string `json:"paymentHeader"`

	// TxHash of the settlement transaction backing the claim.
	TxHash string `json:"txHash,omitempty"`

	// DeadlineMillis is an absolute unix-millisecond timestamp after which
	// the claim is considered expired. Zero means no deadline.
	DeadlineMillis int64 `json:"deadline,omitempty"`

	RequireMultiSig bool              `json:"requireMultiSig,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// JobConfig carries the payment expectations and parameters for one paid
// job execution.
type JobConfig struct {
	ExpectedAmount string         `json:"expectedAmount" validate:"required"`
	ExpectedAsset  string         `json:"expectedAsset" validate:"required"`
	Params         map[string]any `json:"params,omitempty"`
}

// AgentNode is a candidate executor registered with the mesh.
type AgentNode struct {
	ID           string   `json:"id"`
	Endpoint     string   `json:"endpoint"`
	Load         int      `json:"load"`
	Capabilities []string `json:"capabilities,omitempty"`
	Available    bool     `json:"available"`
}

// Task is a unit of work submitted to the mesh for routing.
type Task struct {
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	Capability string         `json:"capability,omitempty"`
}

// CoordinatedTask is a multi-agent workflow with a shared budget.
type CoordinatedTask struct {
	ID       string         `json:"id,omitempty"`
	Workflow string         `json:"workflow"`
	Agents   []string       `json:"agents"`
	Budget   string         `json:"budget"`
	Asset    string         `json:"asset"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Recipient is one party of a payment split.
type Recipient struct {
	To    string `json:"to" validate:"required"`
	Share string `json:"share" validate:"required"`
	Memo  string `json:"memo,omitempty"`
}

// PaymentSplit is a single recipient's settled share of a split payment.
type PaymentSplit struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Asset  string `json:"asset"`
	Share  string `json:"share"`
	Memo   string `json:"memo,omitempty"`
	TxHash string `json:"txHash,omitempty"`
}

// AuditLogEntry is an immutable record of one processed payment request.
type AuditLogEntry struct {
	JobID     string    `json:"jobId"`
	TxHash    string    `json:"txHash"`
	Status    JobStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// ProofData is the canonical snapshot of a transaction over which a proof's
// digest and signature are computed.
type ProofData struct {
	TxHash    string            `json:"txHash"`
	Timestamp time.Time         `json:"timestamp"`
	Amount    string            `json:"amount"`
	Asset     string            `json:"asset"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Proof is a verifiable attestation of a settled transaction. Hash is a pure
// function of Data: re-hashing the snapshot must reproduce it.
type Proof struct {
	Hash      string    `json:"hash"`
	Signature []byte    `json:"signature,omitempty"`
	Algorithm string    `json:"algorithm"`
	Signer    string    `json:"signer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      ProofData `json:"data"`
}

// ServiceTarget names a paid service an orchestrator can hire.
type ServiceTarget struct {
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Node    *AgentNode `json:"node,omitempty"`
	Amount  string     `json:"amount"`
	Asset   string     `json:"asset"`
}

// TaskRequest is the payload the orchestrator hands to a paid agent.
type TaskRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// FeeEstimate is the fee/gas recommendation produced by an external
// optimizer ahead of settlement.
type FeeEstimate struct {
	GasLimit uint64 `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
	Priority string `json:"priority,omitempty"`
}

// NodeResponse is the structured reply a node endpoint returns for a
// submitted task.
type NodeResponse struct {
	TaskID string         `json:"taskId"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}
