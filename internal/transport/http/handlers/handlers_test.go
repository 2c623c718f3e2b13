package handlers

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/middleware"
	"github.com/Lucas-Zerino/grows-gateway/internal/usecase"
	"github.com/Lucas-Zerino/grows-gateway/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstanceRepo struct {
	instances []entity.Instance
}

func (f *fakeInstanceRepo) GetByID(_ context.Context, id uuid.UUID) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByToken(_ context.Context, token string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Token == token {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByExternalID(_ context.Context, provider, externalID string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Provider == provider && inst.ExternalInstanceID == externalID {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) GetByPlatformUserID(_ context.Context, provider, platformUserID string) (entity.Instance, error) {
	for _, inst := range f.instances {
		if inst.Provider == provider && inst.PlatformUserID == platformUserID {
			return inst, nil
		}
	}
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstanceRepo) ListAll(context.Context) ([]entity.Instance, error) {
	return f.instances, nil
}

func (f *fakeInstanceRepo) UpdateStatusIfChanged(_ context.Context, id uuid.UUID, state event.ConnectionState) (bool, error) {
	for i := range f.instances {
		if f.instances[i].ID == id {
			changed := f.instances[i].Status != state
			f.instances[i].Status = state
			return changed, nil
		}
	}
	return false, repository.ErrInstanceNotFound
}

type fakeMessageRepo struct {
	created []entity.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg entity.Message, enqueue func(context.Context, entity.Message) error) (entity.Message, error) {
	msg.ID = uuid.New()
	if err := enqueue(ctx, msg); err != nil {
		return entity.Message{}, err
	}
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeMessageRepo) CreateIdempotent(ctx context.Context, msg entity.Message, _, _ string, enqueue func(context.Context, entity.Message) error) (entity.Message, bool, error) {
	created, err := f.Create(ctx, msg, enqueue)
	return created, false, err
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (entity.Message, error) {
	for _, msg := range f.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (f *fakeMessageRepo) UpdateAckStatus(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, nil
}

func (f *fakeMessageRepo) SetProviderMessageID(context.Context, uuid.UUID, string) error {
	return nil
}

type fakeOutboxRepo struct {
	records []entity.OutboxRecord
}

func (f *fakeOutboxRepo) Enqueue(_ context.Context, destination, routingKey string, payload []byte, maxAttempts int) (entity.OutboxRecord, error) {
	rec := entity.OutboxRecord{ID: uuid.New(), Destination: destination, RoutingKey: routingKey, Payload: payload, Status: entity.OutboxPending, MaxAttempts: maxAttempts}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeOutboxRepo) ClaimReady(context.Context, int) ([]entity.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkCompleted(context.Context, uuid.UUID) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeOutboxRepo) ListByStatus(_ context.Context, status entity.OutboxStatus, _ int, _ string) ([]entity.OutboxRecord, error) {
	var out []entity.OutboxRecord
	for _, rec := range f.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) SweepCompleted(context.Context) (int64, error) { return 0, nil }

type fakePublisher struct{ published int }

func (f *fakePublisher) Publish(context.Context, string, string, []byte, string) error {
	f.published++
	return nil
}
func (f *fakePublisher) Healthy() bool { return true }
func (f *fakePublisher) Close()        {}

type fakeStore struct{}

func (fakeStore) Ping(context.Context) error { return nil }
func (fakeStore) Close()                     {}
func (fakeStore) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeFailureSink struct{ recorded int }

func (f *fakeFailureSink) Record(context.Context, string, string, []byte) error {
	f.recorded++
	return nil
}

type testEnv struct {
	engine    *gin.Engine
	instances *fakeInstanceRepo
	outbox    *fakeOutboxRepo
	publisher *fakePublisher
	failures  *fakeFailureSink
	instance  entity.Instance
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	inst := entity.Instance{
		ID:                 uuid.New(),
		CompanyID:          uuid.New(),
		Provider:           "waha",
		ExternalInstanceID: "main-session",
		Status:             event.StateDisconnected,
		Token:              "tok-123",
		VerifyToken:        "verify-me",
	}
	instances := &fakeInstanceRepo{instances: []entity.Instance{inst}}
	messages := &fakeMessageRepo{}
	outbox := &fakeOutboxRepo{}
	publisher := &fakePublisher{}
	failures := &fakeFailureSink{}
	broker := config.Broker{OutboundExchange: "gateway.outbound", InboundExchange: "gateway.inbound"}

	registry := webhook.NewRegistry(webhook.NewWAHANormalizer(instances, log))
	inbound := usecase.NewInboundRouter(registry, instances, messages, publisher, broker, log)
	sender := usecase.NewOutboundSender(messages, outbox, broker, log)

	handler := NewHandler(inbound, sender, instances, outbox, failures, fakeStore{}, log)
	engine := gin.New()
	NewRouter(handler).RegisterRoutes(engine, middleware.IdempotencyRequired(true))

	return &testEnv{engine: engine, instances: instances, outbox: outbox, publisher: publisher, failures: failures, instance: inst}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func TestReceiveWebhookOK(t *testing.T) {
	env := newTestEnv(t)

	body := `{"event": "state.change", "session": "main-session", "payload": {"status": "WORKING"}}`
	rec := env.do("POST", "/webhooks/waha/"+env.instance.ID.String(), body, nil)

	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received": true}`, rec.Body.String())
	assert.Equal(t, 1, env.publisher.published)
	assert.Equal(t, event.StateConnected, env.instances.instances[0].Status)
}

func TestReceiveWebhookBadPayloadArchived(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do("POST", "/webhooks/waha/"+env.instance.ID.String(), "not json", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, env.failures.recorded)
}

func TestReceiveWebhookBadPathID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do("POST", "/webhooks/waha/not-a-uuid", `{}`, nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestReceiveWebhookUnknownProvider(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do("POST", "/webhooks/telegram/"+env.instance.ID.String(), `{}`, nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestVerifyWebhookHandshake(t *testing.T) {
	env := newTestEnv(t)
	base := "/webhooks/waha/" + env.instance.ID.String()

	rec := env.do("GET", base+"?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	rec = env.do("GET", base+"?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = env.do("GET", base+"?hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", "", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	rec = env.do("GET", "/webhooks/waha/"+uuid.NewString()+"?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)

	headers := map[string]string{
		"Authorization":   "Bearer tok-123",
		"Idempotency-Key": "idem-1",
		"Content-Type":    "application/json",
	}
	rec := env.do("POST", "/api/messages", `{"recipient": "5511999999999", "text": "hi", "priority": 8}`, headers)
	require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data entity.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "5511999999999", resp.Data.Recipient)

	require.Len(t, env.outbox.records, 1)
	assert.Contains(t, env.outbox.records[0].RoutingKey, "priority.high")
}

func TestSendMessageAuth(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"Idempotency-Key": "idem-2"}

	rec := env.do("POST", "/api/messages", `{"recipient": "5511999999999", "text": "hi"}`, headers)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	headers["X-Instance-Token"] = "wrong"
	rec = env.do("POST", "/api/messages", `{"recipient": "5511999999999", "text": "hi"}`, headers)
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
}

func TestSendMessageRequiresIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"Authorization": "Bearer tok-123"}

	rec := env.do("POST", "/api/messages", `{"recipient": "5511999999999", "text": "hi"}`, headers)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestSendMessageInvalidRecipient(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{
		"Authorization":   "Bearer tok-123",
		"Idempotency-Key": "idem-3",
	}
	rec := env.do("POST", "/api/messages", `{"recipient": "abc", "text": "hi"}`, headers)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestListOutbox(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.outbox.Enqueue(context.Background(), "gateway.outbound", "tenant.x.priority.low", []byte(`{}`), 3)

	rec := env.do("GET", "/api/outbox?status=pending", "", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = env.do("GET", "/api/outbox?status=bogus", "", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do("GET", "/healthz", "", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}
