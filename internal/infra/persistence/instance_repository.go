package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InstanceRepository struct {
	db *DB
}

var _ repository.InstanceRepository = (*InstanceRepository)(nil)

func NewInstanceRepository(db *DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func (r *InstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Instance, error) {
	var inst entity.Instance
	if err := r.db.Read(ctx).First(&inst, "id = ?", id).Error; err != nil {
		return entity.Instance{}, mapInstanceErr(err)
	}
	return inst, nil
}

func (r *InstanceRepository) GetByToken(ctx context.Context, token string) (entity.Instance, error) {
	var inst entity.Instance
	if err := r.db.Read(ctx).First(&inst, "token = ?", token).Error; err != nil {
		return entity.Instance{}, mapInstanceErr(err)
	}
	return inst, nil
}

func (r *InstanceRepository) GetByExternalID(ctx context.Context, provider, externalID string) (entity.Instance, error) {
	var inst entity.Instance
	if err := r.db.Read(ctx).First(&inst, "provider = ? AND external_instance_id = ?", provider, externalID).Error; err != nil {
		return entity.Instance{}, mapInstanceErr(err)
	}
	return inst, nil
}

func (r *InstanceRepository) GetByPlatformUserID(ctx context.Context, provider, platformUserID string) (entity.Instance, error) {
	var inst entity.Instance
	if err := r.db.Read(ctx).First(&inst, "provider = ? AND platform_user_id = ?", provider, platformUserID).Error; err != nil {
		return entity.Instance{}, mapInstanceErr(err)
	}
	return inst, nil
}

func (r *InstanceRepository) ListAll(ctx context.Context) ([]entity.Instance, error) {
	var instances []entity.Instance
	if err := r.db.Read(ctx).Order("created_at").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// UpdateStatusIfChanged writes only when the stored state differs, so
// repeated identical webhooks do not touch the row. The WHERE clause is the
// concurrency guard; last writer wins, which is correct for a state cache.
func (r *InstanceRepository) UpdateStatusIfChanged(ctx context.Context, id uuid.UUID, state event.ConnectionState) (bool, error) {
	res := r.db.Write(ctx).Model(&entity.Instance{}).
		Where("id = ? AND status <> ?", id, state).
		Updates(map[string]any{"status": state, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func mapInstanceErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrInstanceNotFound
	}
	return err
}
