package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *DB
}

var _ repository.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message row and runs enqueue inside the same
// transaction; a failed enqueue rolls the message back too.
func (r *MessageRepository) Create(ctx context.Context, msg entity.Message, enqueue func(txCtx context.Context, created entity.Message) error) (entity.Message, error) {
	err := r.db.WithTx(ctx, func(txCtx context.Context) error {
		msg.CreatedAt = time.Now().UTC()
		msg.UpdatedAt = msg.CreatedAt
		if err := r.db.Write(txCtx).Create(&msg).Error; err != nil {
			return err
		}
		if enqueue != nil {
			return enqueue(txCtx, msg)
		}
		return nil
	})
	if err != nil {
		return entity.Message{}, err
	}
	return msg, nil
}

func (r *MessageRepository) CreateIdempotent(ctx context.Context, msg entity.Message, key, requestHash string, enqueue func(txCtx context.Context, created entity.Message) error) (entity.Message, bool, error) {
	var (
		created      entity.Message
		alreadyExist bool
	)
	err := r.db.WithTx(ctx, func(txCtx context.Context) error {
		var existing entity.IdempotencyKey
		if err := r.db.Write(txCtx).First(&existing, "key = ?", key).Error; err == nil {
			if existing.RequestHash != requestHash {
				return repository.ErrIdempotencyKeyConflict
			}
			fetched, err := r.GetByID(txCtx, existing.MessageID)
			if err != nil {
				return err
			}
			created = fetched
			alreadyExist = true
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		msg.CreatedAt = time.Now().UTC()
		msg.UpdatedAt = msg.CreatedAt
		if err := r.db.Write(txCtx).Create(&msg).Error; err != nil {
			return err
		}
		idem := entity.IdempotencyKey{
			Key:         key,
			RequestHash: requestHash,
			MessageID:   msg.ID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := r.db.Write(txCtx).Create(&idem).Error; err != nil {
			return err
		}
		created = msg
		if enqueue != nil {
			return enqueue(txCtx, msg)
		}
		return nil
	})
	if err != nil {
		return entity.Message{}, false, err
	}
	return created, alreadyExist, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Message, error) {
	var msg entity.Message
	if err := r.db.Read(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Message{}, repository.ErrMessageNotFound
		}
		return entity.Message{}, err
	}
	return msg, nil
}

// UpdateAckStatus is best-effort correlation: acks for messages this gateway
// never stored simply match zero rows.
func (r *MessageRepository) UpdateAckStatus(ctx context.Context, instanceID uuid.UUID, providerMessageID, stage string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	res := r.db.Write(ctx).Model(&entity.Message{}).
		Where("instance_id = ? AND provider_message_id = ?", instanceID, providerMessageID).
		Updates(map[string]any{"ack_status": stage, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *MessageRepository) SetProviderMessageID(ctx context.Context, id uuid.UUID, providerMessageID string) error {
	res := r.db.Write(ctx).Model(&entity.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{"provider_message_id": providerMessageID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrMessageNotFound
	}
	return nil
}
