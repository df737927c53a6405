package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/paymesh/paymesh/types"
)

// RedisSink appends JSON-encoded entries to a Redis list, one list per
// service. The list is append-only from this sink's point of view; trimming
// and export are operational concerns outside it.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink builds a sink writing to "audit:<service>".
func NewRedisSink(client *redis.Client, service string) *RedisSink {
	return &RedisSink{
		client: client,
		key:    fmt.Sprintf("audit:%s", service),
	}
}

func (s *RedisSink) Record(ctx context.Context, entry *types.AuditLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// Len reports how many entries the sink's list currently holds.
func (s *RedisSink) Len(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}
