package event

import (
	"context"
	"encoding/json"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes one structured log line per ledger event, carrying the
// encoded payload, so money movements can be reconstructed from the logs.
type AuditHandler struct {
	codec  *Codec
	logger *zap.Logger
}

// NewAuditHandler creates an audit handler for every type the codec knows
func NewAuditHandler(codec *Codec, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{
		codec:  codec,
		logger: logger.Named("audit"),
	}
}

// EventTypes returns the codec's registered types
func (h *AuditHandler) EventTypes() []string {
	return h.codec.Types()
}

// Handle logs evt
func (h *AuditHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	payload, err := h.codec.Encode(evt)
	if err != nil {
		return err
	}
	h.logger.Info("ledger event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("tenant_id", evt.TenantID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
		zap.Any("payload", json.RawMessage(payload)),
	)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
