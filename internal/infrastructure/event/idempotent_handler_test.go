package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newRecordingHandler()
	h := NewIdempotentHandler(inner, store, zap.NewNop())
	evt := closedEvent(uuid.New())

	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), closedEvent(uuid.New())))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, IdempotencyStats{Processed: 2, Duplicate: 1}, h.Metrics().Stats())
}

func TestIdempotentHandler_HandlerErrorKeepsMark(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	inner := newRecordingHandler()
	inner.err = errors.New("failed")
	h := NewIdempotentHandler(inner, store, zap.NewNop())
	evt := closedEvent(uuid.New())

	assert.Error(t, h.Handle(context.Background(), evt))
	assert.NoError(t, h.Handle(context.Background(), evt))
	assert.Equal(t, 1, inner.count())
	assert.Equal(t, int64(1), h.Metrics().Stats().Failed)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(MockIdempotencyStore)
	evt := closedEvent(uuid.New())
	store.On("MarkProcessed", mock.Anything, evt.EventID().String(), 24*time.Hour).Return(false, errors.New("redis down"))

	inner := newRecordingHandler()
	h := NewIdempotentHandler(inner, store, nil)

	require.NoError(t, h.Handle(context.Background(), evt))
	assert.Equal(t, 1, inner.count())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := newRecordingHandler()
	h := NewIdempotentHandler(inner, store, nil, WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	evt := closedEvent(uuid.New())

	_ = h.Handle(context.Background(), evt)
	_ = h.Handle(context.Background(), evt)

	assert.Equal(t, 2, inner.count())
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_CustomTTLAndSharedMetrics(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, time.Minute).Return(true, nil)

	metrics := &IdempotencyMetrics{}
	cfg := shared.IdempotencyConfig{Enabled: true, TTL: time.Minute}
	a := NewIdempotentHandler(newRecordingHandler("A"), store, nil, WithIdempotencyConfig(cfg), WithIdempotencyMetrics(metrics))
	b := NewIdempotentHandler(newRecordingHandler("B"), store, nil, WithIdempotencyConfig(cfg), WithIdempotencyMetrics(metrics))

	_ = a.Handle(context.Background(), closedEvent(uuid.New()))
	_ = b.Handle(context.Background(), closedEvent(uuid.New()))

	assert.Equal(t, []string{"A"}, a.EventTypes())
	assert.Equal(t, int64(2), metrics.Stats().Processed)
	store.AssertExpectations(t)
}
