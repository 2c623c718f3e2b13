package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
)

// Meta covers both Graph API providers (Messenger pages and Instagram
// accounts); the two differ only in name and the platform id the webhook
// resolves through. There is no session lifecycle: create/connect validate
// the stored page token, and status is token validity.
type Meta struct {
	name   string
	client *apiClient
}

func NewMessenger(cfg config.ProviderEndpoint) *Meta {
	return &Meta{name: NameMessenger, client: newAPIClient(cfg)}
}

func NewInstagram(cfg config.ProviderEndpoint) *Meta {
	return &Meta{name: NameInstagram, client: newAPIClient(cfg)}
}

func (m *Meta) Name() string { return m.name }

func (m *Meta) CreateInstance(ctx context.Context, inst entity.Instance) error {
	_, _, err := m.GetStatus(ctx, inst)
	return err
}

func (m *Meta) DeleteInstance(ctx context.Context, inst entity.Instance) error {
	// Nothing to tear down upstream; the subscription is removed by the
	// admin surface that owns app configuration.
	return nil
}

func (m *Meta) Connect(ctx context.Context, inst entity.Instance) error {
	_, _, err := m.GetStatus(ctx, inst)
	return err
}

func (m *Meta) Disconnect(ctx context.Context, inst entity.Instance) error {
	return nil
}

func (m *Meta) GetStatus(ctx context.Context, inst entity.Instance) (event.ConnectionState, string, error) {
	q := url.Values{}
	q.Set("input_token", inst.Token)
	q.Set("access_token", m.client.apiKey)
	var resp struct {
		Data struct {
			IsValid bool `json:"is_valid"`
		} `json:"data"`
	}
	if err := m.client.doJSON(ctx, http.MethodGet, "/debug_token?"+q.Encode(), nil, nil, &resp); err != nil {
		return event.StateDisconnected, "", err
	}
	raw := "invalid"
	if resp.Data.IsValid {
		raw = "valid"
	}
	return MapStatus(m.name, raw), raw, nil
}

func (m *Meta) SendText(ctx context.Context, inst entity.Instance, recipient, body string) (SendResult, error) {
	payload := map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   map[string]string{"text": body},
	}
	return m.send(ctx, inst, payload)
}

func (m *Meta) SendMedia(ctx context.Context, inst entity.Instance, recipient, mediaURL, caption string, mediaType event.MessageType) (SendResult, error) {
	var attachmentType string
	switch mediaType {
	case event.MessageTypeImage:
		attachmentType = "image"
	case event.MessageTypeVideo:
		attachmentType = "video"
	case event.MessageTypeAudio:
		attachmentType = "audio"
	case event.MessageTypeDocument:
		attachmentType = "file"
	default:
		return SendResult{}, fmt.Errorf("%s: unsupported media type %q", m.name, mediaType)
	}
	payload := map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message": map[string]any{
			"attachment": map[string]any{
				"type":    attachmentType,
				"payload": map[string]any{"url": mediaURL, "is_reusable": true},
			},
		},
	}
	return m.send(ctx, inst, payload)
}

func (m *Meta) send(ctx context.Context, inst entity.Instance, payload map[string]any) (SendResult, error) {
	path := fmt.Sprintf("/%s/messages?access_token=%s", inst.PlatformUserID, url.QueryEscape(inst.Token))
	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := m.client.doJSON(ctx, http.MethodPost, path, nil, payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{ProviderMessageID: resp.MessageID}, nil
}
