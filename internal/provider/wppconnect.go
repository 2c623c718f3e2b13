package provider

import (
	"context"
	"net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
)

// WPPConnect drives a WPPConnect server. Each session carries its own bearer
// token, stored on the instance.
type WPPConnect struct {
	client *apiClient
}

func NewWPPConnect(cfg config.ProviderEndpoint) *WPPConnect {
	return &WPPConnect{client: newAPIClient(cfg)}
}

func (w *WPPConnect) Name() string { return NameWPPConnect }

func headersFor(inst entity.Instance) map[string]string {
	return map[string]string{"Authorization": "Bearer " + inst.Token}
}

func (w *WPPConnect) CreateInstance(ctx context.Context, inst entity.Instance) error {
	payload := map[string]any{"webhook": inst.WebhookURL, "waitQrCode": false}
	return w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/start-session", headersFor(inst), payload, nil)
}

func (w *WPPConnect) DeleteInstance(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/logout-session", headersFor(inst), nil, nil)
}

func (w *WPPConnect) Connect(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/start-session", headersFor(inst), nil, nil)
}

func (w *WPPConnect) Disconnect(ctx context.Context, inst entity.Instance) error {
	return w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/close-session", headersFor(inst), nil, nil)
}

func (w *WPPConnect) GetStatus(ctx context.Context, inst entity.Instance) (event.ConnectionState, string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := w.client.doJSON(ctx, http.MethodGet, "/api/"+inst.ExternalInstanceID+"/status-session", headersFor(inst), nil, &resp); err != nil {
		return event.StateDisconnected, "", err
	}
	return MapStatus(NameWPPConnect, resp.Status), resp.Status, nil
}

func (w *WPPConnect) SendText(ctx context.Context, inst entity.Instance, recipient, body string) (SendResult, error) {
	payload := map[string]any{"phone": recipient, "message": body}
	var resp struct {
		Response []struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	if err := w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/send-message", headersFor(inst), payload, &resp); err != nil {
		return SendResult{}, err
	}
	out := SendResult{}
	if len(resp.Response) > 0 {
		out.ProviderMessageID = resp.Response[0].ID
	}
	return out, nil
}

func (w *WPPConnect) SendMedia(ctx context.Context, inst entity.Instance, recipient, mediaURL, caption string, mediaType event.MessageType) (SendResult, error) {
	payload := map[string]any{
		"phone":   recipient,
		"path":    mediaURL,
		"caption": caption,
	}
	var resp struct {
		Response []struct {
			ID string `json:"id"`
		} `json:"response"`
	}
	if err := w.client.doJSON(ctx, http.MethodPost, "/api/"+inst.ExternalInstanceID+"/send-file", headersFor(inst), payload, &resp); err != nil {
		return SendResult{}, err
	}
	out := SendResult{}
	if len(resp.Response) > 0 {
		out.ProviderMessageID = resp.Response[0].ID
	}
	return out, nil
}
