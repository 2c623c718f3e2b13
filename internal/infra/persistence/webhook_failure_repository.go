package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"gorm.io/datatypes"
)

type WebhookFailureRepository struct {
	db *DB
}

func NewWebhookFailureRepository(db *DB) *WebhookFailureRepository {
	return &WebhookFailureRepository{db: db}
}

// Record keeps a rejected webhook body for later diagnosis. Bodies that are
// not valid JSON are wrapped so the jsonb column still accepts them.
func (r *WebhookFailureRepository) Record(ctx context.Context, providerName, reason string, payload []byte) error {
	if !json.Valid(payload) {
		wrapped, err := json.Marshal(map[string]string{"raw": string(payload)})
		if err != nil {
			return err
		}
		payload = wrapped
	}
	failure := entity.WebhookFailure{
		Provider:  providerName,
		Reason:    reason,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now().UTC(),
	}
	return r.db.Write(ctx).Create(&failure).Error
}
