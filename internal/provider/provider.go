package provider

import (
	"context"
	"fmt"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
)

const (
	NameWPPConnect = "wppconnect"
	NameWAHA       = "waha"
	NameMessenger  = "messenger"
	NameInstagram  = "instagram"
)

// SendResult is what a provider reports after accepting an outbound message.
type SendResult struct {
	ProviderMessageID string
}

// Gateway is the uniform surface over one upstream provider API. Concrete
// implementations translate these calls into the provider's own endpoints;
// every status they return has already been through MapStatus.
type Gateway interface {
	Name() string
	CreateInstance(ctx context.Context, inst entity.Instance) error
	DeleteInstance(ctx context.Context, inst entity.Instance) error
	Connect(ctx context.Context, inst entity.Instance) error
	Disconnect(ctx context.Context, inst entity.Instance) error
	// GetStatus returns the canonical state together with the raw provider
	// string for diagnostics.
	GetStatus(ctx context.Context, inst entity.Instance) (event.ConnectionState, string, error)
	SendText(ctx context.Context, inst entity.Instance, recipient, body string) (SendResult, error)
	SendMedia(ctx context.Context, inst entity.Instance, recipient, mediaURL, caption string, mediaType event.MessageType) (SendResult, error)
}

// Registry selects a gateway by the provider type stored on the instance row.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("provider: unknown gateway %q", name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
