package webhook

import (
	"context"
	"testing"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wppFixture(status event.ConnectionState) (*fakeInstanceRepo, entity.Instance) {
	inst := entity.Instance{
		ID:                 uuid.New(),
		CompanyID:          uuid.New(),
		Provider:           provider.NameWPPConnect,
		ExternalInstanceID: "support",
		Status:             status,
	}
	return &fakeInstanceRepo{instances: []entity.Instance{inst}}, inst
}

func TestWPPConnectMessage(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{
		"event": "onmessage",
		"session": "support",
		"id": "WPP1",
		"from": "5521977777777@c.us",
		"to": "5521966666666@c.us",
		"content": "oi",
		"timestamp": 1700000100,
		"fromMe": false
	}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)

	msg := events[0].Message
	require.NotNil(t, msg)
	assert.Equal(t, "WPP1", msg.ProviderMessageID)
	assert.Equal(t, "5521977777777", msg.Sender)
	assert.Equal(t, "oi", msg.Content)
	assert.Equal(t, event.MessageTypeText, msg.Type)
	assert.Equal(t, int64(1700000100000), events[0].Timestamp)
}

func TestWPPConnectMessageBodyFallback(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "onmessage", "session": "support", "id": "WPP2", "from": "5521977777777@c.us", "body": "fallback"}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fallback", events[0].Message.Content)
}

func TestWPPConnectLinkedSender(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "onmessage", "session": "support", "id": "WPP3", "from": "98765432109@lid", "body": "hi"}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "98765432109", events[0].Message.Sender)
	assert.Equal(t, "98765432109", events[0].Message.LinkedID)
	assert.False(t, events[0].Message.IsGroup)
}

func TestWPPConnectAck(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "onack", "session": "support", "id": "WPP4", "ack": 2}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.AckDelivered, events[0].Ack.Stage)

	_, err = n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, `{"event": "onack", "session": "support", "ack": 2}`))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestWPPConnectStatusFind(t *testing.T) {
	repo, inst := wppFixture(event.StateConnecting)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "status-find", "session": "support", "status": "CONNECTED"}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.StateConnected, events[0].State.State)

	// Same raw status against an already connected instance is suppressed.
	repo.instances[0].Status = event.StateConnected
	events, err = n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWPPConnectPresenceForwardedAsGeneric(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "onpresencechanged", "session": "support", "id": "P1"}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.KindGeneric, events[0].Kind)
	require.NotNil(t, events[0].Generic)
	assert.Equal(t, "onpresencechanged", events[0].Generic.EventType)
}

func TestWPPConnectSignatureCheckedBeforeStructure(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	repo.instances[0].WebhookSecret = "topsecret"
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"session": "support"}`
	_, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	assert.ErrorIs(t, err, ErrUnauthorized)

	req := newRequest(provider.NameWPPConnect, inst.ID, body)
	req.Headers.Set("X-Webhook-Hmac", signBody("topsecret", []byte(body)))
	_, err = n.Normalize(context.Background(), req)
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestWPPConnectResolvesByPathWhenSessionMissing(t *testing.T) {
	repo, inst := wppFixture(event.StateConnected)
	n := NewWPPConnectNormalizer(repo, testLogger())

	body := `{"event": "onack", "id": "WPP5", "ack": 1}`
	events, err := n.Normalize(context.Background(), newRequest(provider.NameWPPConnect, inst.ID, body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, inst.ID, events[0].InstanceID)
}
