package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditHandler_LogsEncodedEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	codec := NewLedgerCodec()
	h := NewAuditHandler(codec, zap.New(core))
	tenant := uuid.New()
	evt := closedEvent(tenant)

	require.NoError(t, h.Handle(context.Background(), evt))

	entries := logs.FilterMessage("ledger event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, "CashDayClosed", fields["event_type"])
	assert.Equal(t, tenant.String(), fields["tenant_id"])

	raw, ok := fields["payload"].(json.RawMessage)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"total_discrepancy":"-2"`)
}

func TestAuditHandler_SubscribesToLedgerEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	core, logs := observer.New(zapcore.InfoLevel)
	bus.Subscribe(NewAuditHandler(NewLedgerCodec(), zap.New(core)))

	_ = bus.Publish(context.Background(), recordedEvent(uuid.New(), "5"), closedEvent(uuid.New()))

	assert.Equal(t, 2, logs.Len())
}
