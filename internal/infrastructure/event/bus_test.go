package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryEventBus_DeliversByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	recorded := newRecordingHandler(finance.EventCashTransactionRecorded)
	closings := newRecordingHandler(finance.EventCashDayClosed)
	bus.Subscribe(recorded)
	bus.Subscribe(closings)

	tenant := uuid.New()
	err := bus.Publish(context.Background(), recordedEvent(tenant, "10"), recordedEvent(tenant, "20"), closedEvent(tenant))
	require.NoError(t, err)

	assert.Equal(t, 2, recorded.count())
	assert.Equal(t, 1, closings.count())
	assert.Equal(t, 2, bus.HandlerCount())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler(finance.EventCashTransactionRecorded)
	bus.Subscribe(h, finance.EventCashDayClosed)

	_ = bus.Publish(context.Background(), recordedEvent(uuid.New(), "1"))
	assert.Equal(t, 0, h.count())

	_ = bus.Publish(context.Background(), closedEvent(uuid.New()))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_Wildcard(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	all := newRecordingHandler()
	bus.Subscribe(all)

	_ = bus.Publish(context.Background(), recordedEvent(uuid.New(), "1"), closedEvent(uuid.New()))
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newRecordingHandler(finance.EventCashDayClosed)
	failing.err = errors.New("downstream unavailable")
	panicking := newRecordingHandler(finance.EventCashDayClosed)
	panicking.panics = true
	healthy := newRecordingHandler(finance.EventCashDayClosed)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), closedEvent(uuid.New()))

	require.NoError(t, err)
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler(finance.EventCashDayClosed)
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), closedEvent(uuid.New()))
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), closedEvent(uuid.New()))

	assert.Equal(t, 1, h.count())
	assert.Equal(t, 0, bus.HandlerCount())
}
