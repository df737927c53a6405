package types

import "time"

// RequestVerification is the bridge layer's answer to an inbound request's
// payment claim. Invalid outcomes carry a Reason and are not errors.
type RequestVerification struct {
	Valid   bool          `json:"valid"`
	Reason  string        `json:"reason,omitempty"`
	Payment *PaymentClaim `json:"payment,omitempty"`
	Receipt *PaymentReceipt
}

// SettlementResult is the outcome of an automated settlement. Latency is the
// receipt timestamp minus the original payment timestamp and is reported on
// the success path as well.
type SettlementResult struct {
	Success bool            `json:"success"`
	TxHash  string          `json:"txHash,omitempty"`
	Receipt *PaymentReceipt `json:"receipt,omitempty"`
	Latency time.Duration   `json:"latency"`
}

// ProcessResult is the outcome of one payment-backed job execution.
type ProcessResult struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RouteResult reports where a task landed and what the node returned.
type RouteResult struct {
	NodeID string        `json:"nodeId"`
	TaskID string        `json:"taskId"`
	Step   int           `json:"step,omitempty"`
	Result *NodeResponse `json:"result,omitempty"`
}

// SplitResult is the aggregate outcome of a split payment, returned only
// once every per-recipient transfer has settled.
type SplitResult struct {
	OriginalAmount string          `json:"originalAmount"`
	Asset          string          `json:"asset"`
	Splits         []*PaymentSplit `json:"splits"`
	Timestamp      time.Time       `json:"timestamp"`
}

// CoordinationResult aggregates the routing outcomes of a multi-agent
// workflow. Completed is true only when every subtask routed.
type CoordinationResult struct {
	TaskID    string         `json:"taskId"`
	Workflow  string         `json:"workflow"`
	Agents    []string       `json:"agents"`
	Steps     []*RouteResult `json:"steps"`
	Completed bool           `json:"completed"`
}

// TaskTicket is what an orchestrator hands back after paying for a task and
// notifying the hired agent.
type TaskTicket struct {
	TxHash   string        `json:"txHash"`
	JobID    string        `json:"jobId"`
	Service  string        `json:"service"`
	Record   *LedgerRecord `json:"record,omitempty"`
	Notified bool          `json:"notified"`
}

// AuditSummary is the fold of a proof set: counts, numeric totals, and the
// inclusive timestamp range. An empty proof set yields zero counts and a nil
// time range.
type AuditSummary struct {
	TotalTransactions int               `json:"totalTransactions"`
	TotalAmount       string            `json:"totalAmount"`
	ByAsset           map[string]string `json:"byAsset,omitempty"`
	ByService         map[string]int    `json:"byService,omitempty"`
	EarliestTimestamp *time.Time        `json:"earliestTimestamp,omitempty"`
	LatestTimestamp   *time.Time        `json:"latestTimestamp,omitempty"`
}
