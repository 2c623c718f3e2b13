package repository

import (
	"context"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/google/uuid"
)

// OutboxRepository is the durable queue of delivery intents. Enqueue
// participates in the caller's transaction when the context carries one, so
// a rolled-back business write leaves no orphaned record behind.
type OutboxRepository interface {
	// Enqueue inserts a pending record. maxAttempts <= 0 uses the configured
	// default.
	Enqueue(ctx context.Context, destination, routingKey string, payload []byte, maxAttempts int) (entity.OutboxRecord, error)

	// ClaimReady atomically moves up to limit ready records (pending, failed
	// with an elapsed next_retry_at, or processing with a stale claim left
	// behind by a dead dispatcher) to processing and increments their
	// attempts. FIFO by creation time. Safe to call from concurrent
	// dispatchers.
	ClaimReady(ctx context.Context, limit int) ([]entity.OutboxRecord, error)

	// MarkCompleted is terminal and idempotent.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed schedules a retry on the backoff ladder while attempts
	// remain, otherwise leaves the record terminally failed with no
	// next_retry_at.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// ListByStatus pages records for audit, newest-first cursor pagination.
	ListByStatus(ctx context.Context, status entity.OutboxStatus, limit int, cursor string) ([]entity.OutboxRecord, error)

	// SweepCompleted deletes completed records whose processed_at is older
	// than the retention window. Returns rows removed.
	SweepCompleted(ctx context.Context) (int64, error)
}
