// Package audit defines the append-only audit sink and its shipped
// implementations. Sinks never mask the underlying processing outcome:
// callers log sink failures and move on.
package audit

import (
	"context"
	"sync"

	"github.com/paymesh/paymesh/types"
)

// Sink receives one entry per processed request, success or failure.
type Sink interface {
	Record(ctx context.Context, entry *types.AuditLogEntry) error
}

// MemorySink keeps entries in order in memory. Useful for tests and
// single-process deployments.
type MemorySink struct {
	mu      sync.Mutex
	entries []*types.AuditLogEntry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, entry *types.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (s *MemorySink) Entries() []*types.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.AuditLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
