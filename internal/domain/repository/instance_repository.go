package repository

import (
	"context"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/google/uuid"
)

// InstanceRepository resolves webhook correlation keys to instances and keeps
// the connection-state cache. Admin CRUD is out of scope here.
type InstanceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (entity.Instance, error)
	GetByToken(ctx context.Context, token string) (entity.Instance, error)
	// GetByExternalID resolves session providers (bridge session name).
	GetByExternalID(ctx context.Context, provider, externalID string) (entity.Instance, error)
	// GetByPlatformUserID resolves graph providers (linked page/user id).
	GetByPlatformUserID(ctx context.Context, provider, platformUserID string) (entity.Instance, error)

	// ListAll returns every live instance, for the status reconciler.
	ListAll(ctx context.Context) ([]entity.Instance, error)

	// UpdateStatusIfChanged writes the new state only when it differs from
	// the stored one. Returns true when a write happened. Last-writer-wins
	// is the intended semantic for this cache.
	UpdateStatusIfChanged(ctx context.Context, id uuid.UUID, state event.ConnectionState) (bool, error)
}
