package usecase

import (
	"context"
	"errors"
	"io"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/webhook"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type publishedMessage struct {
	Destination string
	RoutingKey  string
	Payload     []byte
	MsgID       string
}

type fakePublisher struct {
	published []publishedMessage
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, destination, routingKey string, payload []byte, msgID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{destination, routingKey, payload, msgID})
	return nil
}

func (f *fakePublisher) Healthy() bool { return f.err == nil }
func (f *fakePublisher) Close()        {}

type fakeOutbox struct {
	records   []entity.OutboxRecord
	completed []uuid.UUID
	failed    map[uuid.UUID]string
	claimErr  error
}

func newFakeOutbox(records ...entity.OutboxRecord) *fakeOutbox {
	return &fakeOutbox{records: records, failed: make(map[uuid.UUID]string)}
}

func (f *fakeOutbox) Enqueue(_ context.Context, destination, routingKey string, payload []byte, maxAttempts int) (entity.OutboxRecord, error) {
	rec := entity.OutboxRecord{
		ID:          uuid.New(),
		Destination: destination,
		RoutingKey:  routingKey,
		Payload:     payload,
		Status:      entity.OutboxPending,
		MaxAttempts: maxAttempts,
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeOutbox) ClaimReady(_ context.Context, limit int) ([]entity.OutboxRecord, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if limit > len(f.records) {
		limit = len(f.records)
	}
	claimed := make([]entity.OutboxRecord, 0, limit)
	for i := 0; i < limit; i++ {
		rec := f.records[i]
		rec.Status = entity.OutboxProcessing
		rec.Attempts++
		f.records[i] = rec
		claimed = append(claimed, rec)
	}
	return claimed, nil
}

func (f *fakeOutbox) MarkCompleted(_ context.Context, id uuid.UUID) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeOutbox) ListByStatus(_ context.Context, status entity.OutboxStatus, _ int, _ string) ([]entity.OutboxRecord, error) {
	var out []entity.OutboxRecord
	for _, rec := range f.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeOutbox) SweepCompleted(_ context.Context) (int64, error) {
	return int64(len(f.completed)), nil
}

type fakeMessages struct {
	created    []entity.Message
	byIdemKey  map[string]entity.Message
	ackUpdates map[string]string
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{byIdemKey: make(map[string]entity.Message), ackUpdates: make(map[string]string)}
}

func (f *fakeMessages) Create(ctx context.Context, msg entity.Message, enqueue func(context.Context, entity.Message) error) (entity.Message, error) {
	msg.ID = uuid.New()
	if err := enqueue(ctx, msg); err != nil {
		return entity.Message{}, err
	}
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeMessages) CreateIdempotent(ctx context.Context, msg entity.Message, key, _ string, enqueue func(context.Context, entity.Message) error) (entity.Message, bool, error) {
	if existing, ok := f.byIdemKey[key]; ok {
		return existing, true, nil
	}
	created, err := f.Create(ctx, msg, enqueue)
	if err != nil {
		return entity.Message{}, false, err
	}
	f.byIdemKey[key] = created
	return created, false, nil
}

func (f *fakeMessages) GetByID(_ context.Context, id uuid.UUID) (entity.Message, error) {
	for _, msg := range f.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (f *fakeMessages) UpdateAckStatus(_ context.Context, _ uuid.UUID, providerMessageID, stage string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	f.ackUpdates[providerMessageID] = stage
	return true, nil
}

func (f *fakeMessages) SetProviderMessageID(_ context.Context, id uuid.UUID, providerMessageID string) error {
	for i := range f.created {
		if f.created[i].ID == id {
			f.created[i].ProviderMessageID = providerMessageID
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

type fakeInstances struct {
	instances    []entity.Instance
	statusWrites []event.ConnectionState
	statusErr    error
}

func (f *fakeInstances) ListAll(context.Context) ([]entity.Instance, error) {
	return f.instances, nil
}

func (f *fakeInstances) GetByID(context.Context, uuid.UUID) (entity.Instance, error) {
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstances) GetByToken(context.Context, string) (entity.Instance, error) {
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstances) GetByExternalID(context.Context, string, string) (entity.Instance, error) {
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstances) GetByPlatformUserID(context.Context, string, string) (entity.Instance, error) {
	return entity.Instance{}, repository.ErrInstanceNotFound
}

func (f *fakeInstances) UpdateStatusIfChanged(_ context.Context, id uuid.UUID, state event.ConnectionState) (bool, error) {
	if f.statusErr != nil {
		return false, f.statusErr
	}
	for i := range f.instances {
		if f.instances[i].ID == id {
			if f.instances[i].Status == state {
				return false, nil
			}
			f.instances[i].Status = state
			f.statusWrites = append(f.statusWrites, state)
			return true, nil
		}
	}
	f.statusWrites = append(f.statusWrites, state)
	return true, nil
}

// stubNormalizer returns canned events so router behavior can be tested
// without provider payloads.
type stubNormalizer struct {
	name   string
	events []event.Event
	err    error
}

func (s *stubNormalizer) Provider() string { return s.name }

func (s *stubNormalizer) Normalize(context.Context, webhook.Request) ([]event.Event, error) {
	return s.events, s.err
}

var errBrokerDown = errors.New("broker down")
