package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/pagination"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// defaultBackoffLadder spaces retries at 5s, 30s, 2m, 10m, 1h; attempts past
// the ladder reuse the last rung.
var defaultBackoffLadder = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	time.Hour,
}

const (
	defaultMaxAttempts = 3
	defaultLockTimeout = time.Minute
)

type OutboxRepository struct {
	db          *DB
	ladder      []time.Duration
	maxAttempts int
	lockTimeout time.Duration
	retention   time.Duration
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

func NewOutboxRepository(db *DB, ladder []time.Duration, maxAttempts int, lockTimeout, retention time.Duration) *OutboxRepository {
	if len(ladder) == 0 {
		ladder = defaultBackoffLadder
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &OutboxRepository{db: db, ladder: ladder, maxAttempts: maxAttempts, lockTimeout: lockTimeout, retention: retention}
}

// Enqueue inserts through the transaction carried in ctx when there is one,
// so the record commits or rolls back with the business write.
func (r *OutboxRepository) Enqueue(ctx context.Context, destination, routingKey string, payload []byte, maxAttempts int) (entity.OutboxRecord, error) {
	if maxAttempts <= 0 {
		maxAttempts = r.maxAttempts
	}
	rec := entity.OutboxRecord{
		Destination: destination,
		RoutingKey:  routingKey,
		Payload:     datatypes.JSON(payload),
		Status:      entity.OutboxPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.Write(ctx).Create(&rec).Error; err != nil {
		return entity.OutboxRecord{}, err
	}
	return rec, nil
}

// claimQuery stamps claimed_at when it moves a row to processing. A
// processing row whose stamp is older than the lock timeout belongs to a
// dispatcher that died before finishing the batch, and is claimed again.
const claimQuery = `
WITH cte AS (
    SELECT id
    FROM outbox_records
    WHERE status = 'pending'
       OR (status = 'failed' AND next_retry_at IS NOT NULL AND next_retry_at <= NOW())
       OR (status = 'processing' AND claimed_at < NOW() - (? * INTERVAL '1 second'))
    ORDER BY created_at
    LIMIT ?
    FOR UPDATE SKIP LOCKED
)
UPDATE outbox_records
SET status = 'processing', attempts = attempts + 1, next_retry_at = NULL, claimed_at = NOW()
WHERE id IN (SELECT id FROM cte)
RETURNING id, destination, routing_key, payload, status, attempts, max_attempts, next_retry_at, error_message, created_at, claimed_at, processed_at;
`

// ClaimReady is the sole guard against double publishing: the claim and the
// move to processing happen in one statement, and SKIP LOCKED keeps
// concurrent dispatchers off each other's rows.
func (r *OutboxRepository) ClaimReady(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []entity.OutboxRecord
	if err := r.db.Write(ctx).Raw(claimQuery, int(r.lockTimeout.Seconds()), limit).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *OutboxRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.db.Write(ctx).
		Exec(`UPDATE outbox_records SET status = 'completed', claimed_at = NULL, processed_at = NOW() WHERE id = ? AND status <> 'completed'`, id).
		Error
}

// MarkFailed schedules the next retry on the ladder, or leaves the record
// terminally failed once attempts are exhausted. The record is owned by the
// calling dispatcher at this point, so read-then-update is safe here.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		var rec entity.OutboxRecord
		if err := r.db.Write(txCtx).First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrOutboxRecordNotFound
			}
			return err
		}

		return r.db.Write(txCtx).Model(&entity.OutboxRecord{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":        entity.OutboxFailed,
				"error_message": errMsg,
				"claimed_at":    nil,
				"next_retry_at": r.nextRetryAt(rec.Attempts, rec.MaxAttempts, time.Now().UTC()),
			}).Error
	})
}

// nextRetryAt schedules the retry following a failed attempt, or returns nil
// once attempts are exhausted and the record is terminally failed.
func (r *OutboxRepository) nextRetryAt(attempts, maxAttempts int, now time.Time) *time.Time {
	if maxAttempts <= 0 {
		maxAttempts = r.maxAttempts
	}
	if attempts >= maxAttempts {
		return nil
	}
	next := now.Add(r.delayFor(attempts))
	return &next
}

// delayFor returns the ladder rung for a record that has now made `attempts`
// publish attempts, clamped to the last rung.
func (r *OutboxRepository) delayFor(attempts int) time.Duration {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.ladder) {
		idx = len(r.ladder) - 1
	}
	return r.ladder[idx]
}

func (r *OutboxRepository) ListByStatus(ctx context.Context, status entity.OutboxStatus, limit int, cursor string) ([]entity.OutboxRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	tx := r.db.Read(ctx).Model(&entity.OutboxRecord{}).Where("status = ?", status)
	if cursor != "" {
		createdAt, id, err := pagination.Decode(cursor)
		if err != nil {
			return nil, repository.ErrInvalidCursor
		}
		tx = tx.Where("(created_at, id) < (?, ?)", createdAt, id)
	}

	var records []entity.OutboxRecord
	if err := tx.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *OutboxRepository) SweepCompleted(ctx context.Context) (int64, error) {
	res := r.db.Write(ctx).
		Exec(`DELETE FROM outbox_records WHERE status = 'completed' AND processed_at < NOW() - (? * INTERVAL '1 second')`, int(r.retention.Seconds()))
	return res.RowsAffected, res.Error
}
