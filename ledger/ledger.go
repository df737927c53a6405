// Package ledger defines the gateway capability through which paymesh talks
// to the distributed ledger. The ledger itself is an external collaborator;
// only transaction lookup and broadcast are required here.
package ledger

import (
	"context"

	"github.com/paymesh/paymesh/types"
)

// Gateway supplies transaction records by hash and accepts broadcast of
// signed transactions.
type Gateway interface {
	// GetTransaction returns the ledger's view of a transaction. An absent
	// transaction is reported as a typed error with code types.ErrNotFound;
	// transport faults carry types.ErrLedgerUnavailable.
	GetTransaction(ctx context.Context, txHash string) (*types.LedgerRecord, error)

	// Broadcast submits a signed transaction and returns its hash.
	Broadcast(ctx context.Context, tx *types.SignedTransaction) (string, error)
}

// NotFound builds the canonical absent-transaction error for gateway
// implementations.
func NotFound(txHash string) *types.Error {
	return &types.Error{
		Code:    types.ErrNotFound,
		Message: "transaction not found",
		Data:    txHash,
	}
}
