package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
)

// WAHA drives a WAHA bridge server. Sessions are keyed by the instance's
// external id; authentication is a server-wide API key.
type WAHA struct {
	client *apiClient
}

func NewWAHA(cfg config.ProviderEndpoint) *WAHA {
	return &WAHA{client: newAPIClient(cfg)}
}

func (w *WAHA) Name() string { return NameWAHA }

func (w *WAHA) headers() map[string]string {
	return map[string]string{"X-Api-Key": w.client.apiKey}
}

func (w *WAHA) CreateInstance(ctx context.Context, inst entity.Instance) error {
	payload := map[string]any{
		"name": inst.ExternalInstanceID,
		"config": map[string]any{
			"webhooks": []map[string]any{
				{"url": inst.WebhookURL, "events": []string{"message", "message.ack", "state.change"}},
			},
		},
	}
	return w.client.doJSON(ctx, http.MethodPost, "/api/sessions", w.headers(), payload, nil)
}

func (w *WAHA) DeleteInstance(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodDelete, "/api/sessions/"+inst.ExternalInstanceID, w.headers(), nil, nil)
}

func (w *WAHA) Connect(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodPost, "/api/sessions/"+inst.ExternalInstanceID+"/start", w.headers(), nil, nil)
}

func (w *WAHA) Disconnect(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodPost, "/api/sessions/"+inst.ExternalInstanceID+"/stop", w.headers(), nil, nil)
}

func (w *WAHA) GetStatus(ctx context.Context, inst entity.Instance) (event.ConnectionState, string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := w.client.doJSON(ctx, http.MethodGet, "/api/sessions/"+inst.ExternalInstanceID, w.headers(), nil, &resp); err != nil {
		return event.StateDisconnected, "", err
	}
	return MapStatus(NameWAHA, resp.Status), resp.Status, nil
}

func (w *WAHA) SendText(ctx context.Context, inst entity.Instance, recipient, body string) (SendResult, error) {
	payload := map[string]any{
		"session": inst.ExternalInstanceID,
		"chatId":  recipient + "@c.us",
		"text":    body,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := w.client.doJSON(ctx, http.MethodPost, "/api/sendText", w.headers(), payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{ProviderMessageID: resp.ID}, nil
}

func (w *WAHA) SendMedia(ctx context.Context, inst entity.Instance, recipient, mediaURL, caption string, mediaType event.MessageType) (SendResult, error) {
	var path string
	switch mediaType {
	case event.MessageTypeImage:
		path = "/api/sendImage"
	case event.MessageTypeVideo:
		path = "/api/sendVideo"
	case event.MessageTypeAudio:
		path = "/api/sendVoice"
	case event.MessageTypeDocument:
		path = "/api/sendFile"
	default:
		return SendResult{}, fmt.Errorf("waha: unsupported media type %q", mediaType)
	}
	payload := map[string]any{
		"session": inst.ExternalInstanceID,
		"chatId":  recipient + "@c.us",
		"file":    map[string]any{"url": mediaURL},
		"caption": caption,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := w.client.doJSON(ctx, http.MethodPost, path, w.headers(), payload, &resp); err != nil {
		return SendResult{}, err
	}
	return SendResult{ProviderMessageID: resp.ID}, nil
}
