package repository

import (
	"context"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/google/uuid"
)

// MessageRepository persists outbound message rows. Create runs the message
// insert and the outbox enqueue in one transaction.
type MessageRepository interface {
	Create(ctx context.Context, msg entity.Message, enqueue func(txCtx context.Context, created entity.Message) error) (entity.Message, error)
	CreateIdempotent(ctx context.Context, msg entity.Message, key, requestHash string, enqueue func(txCtx context.Context, created entity.Message) error) (entity.Message, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.Message, error)
	// UpdateAckStatus correlates a provider ack to the local row. Missing
	// provider ids are not an error; acks may refer to messages this gateway
	// never sent.
	UpdateAckStatus(ctx context.Context, instanceID uuid.UUID, providerMessageID, stage string) (bool, error)
	// SetProviderMessageID records the id the provider assigned after the
	// worker performed the real send.
	SetProviderMessageID(ctx context.Context, id uuid.UUID, providerMessageID string) error
}
