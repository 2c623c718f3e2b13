package usecase

import (
	"context"
	"testing"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/entity"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeGateway struct {
	name        string
	state       event.ConnectionState
	raw         string
	err         error
	statusCalls int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateInstance(context.Context, entity.Instance) error { return nil }
func (g *fakeGateway) DeleteInstance(context.Context, entity.Instance) error { return nil }
func (g *fakeGateway) Connect(context.Context, entity.Instance) error        { return nil }
func (g *fakeGateway) Disconnect(context.Context, entity.Instance) error     { return nil }

func (g *fakeGateway) GetStatus(context.Context, entity.Instance) (event.ConnectionState, string, error) {
	g.statusCalls++
	return g.state, g.raw, g.err
}

func (g *fakeGateway) SendText(context.Context, entity.Instance, string, string) (provider.SendResult, error) {
	return provider.SendResult{}, nil
}

func (g *fakeGateway) SendMedia(context.Context, entity.Instance, string, string, string, event.MessageType) (provider.SendResult, error) {
	return provider.SendResult{}, nil
}

func TestReconcileAllRepairsDriftedState(t *testing.T) {
	inst := entity.Instance{ID: uuid.New(), Provider: "waha", Status: event.StateConnected}
	instances := &fakeInstances{instances: []entity.Instance{inst}}
	gateway := &fakeGateway{name: "waha", state: event.StateDisconnected, raw: "STOPPED"}

	r := NewStatusReconciler(instances, provider.NewRegistry(gateway), 0, testLogger())
	r.ReconcileAll(context.Background())

	assert.Equal(t, 1, gateway.statusCalls)
	assert.Equal(t, []event.ConnectionState{event.StateDisconnected}, instances.statusWrites)
}

func TestReconcileAllSkipsMatchingState(t *testing.T) {
	inst := entity.Instance{ID: uuid.New(), Provider: "waha", Status: event.StateConnected}
	instances := &fakeInstances{instances: []entity.Instance{inst}}
	gateway := &fakeGateway{name: "waha", state: event.StateConnected, raw: "WORKING"}

	r := NewStatusReconciler(instances, provider.NewRegistry(gateway), 0, testLogger())
	r.ReconcileAll(context.Background())

	assert.Empty(t, instances.statusWrites)
}

func TestReconcileAllContinuesPastProviderErrors(t *testing.T) {
	broken := entity.Instance{ID: uuid.New(), Provider: "waha", Status: event.StateConnected}
	healthy := entity.Instance{ID: uuid.New(), Provider: "wppconnect", Status: event.StateConnected}
	unconfigured := entity.Instance{ID: uuid.New(), Provider: "messenger", Status: event.StateConnected}
	instances := &fakeInstances{instances: []entity.Instance{broken, unconfigured, healthy}}

	wahaGW := &fakeGateway{name: "waha", err: errBrokerDown}
	wppGW := &fakeGateway{name: "wppconnect", state: event.StateDisconnected, raw: "CLOSED"}

	r := NewStatusReconciler(instances, provider.NewRegistry(wahaGW, wppGW), 0, testLogger())
	r.ReconcileAll(context.Background())

	assert.Equal(t, 1, wahaGW.statusCalls)
	assert.Equal(t, 1, wppGW.statusCalls)
	assert.Equal(t, []event.ConnectionState{event.StateDisconnected}, instances.statusWrites)
}
