package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
)

// Codec encodes domain events as JSON and decodes them back into their
// registered concrete types.
type Codec struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewCodec creates an empty codec
func NewCodec() *Codec {
	return &Codec{types: make(map[string]reflect.Type)}
}

// NewLedgerCodec returns a codec that knows every ledger event
func NewLedgerCodec() *Codec {
	c := NewCodec()
	c.Register(finance.EventObligationCreated, &finance.ObligationCreatedEvent{})
	c.Register(finance.EventObligationCancelled, &finance.ObligationCancelledEvent{})
	c.Register(finance.EventSettlementCompleted, &finance.SettlementCompletedEvent{})
	c.Register(finance.EventCashTransactionRecorded, &finance.CashTransactionRecordedEvent{})
	c.Register(finance.EventCashTransactionDeleted, &finance.CashTransactionDeletedEvent{})
	c.Register(finance.EventCreditMovementApplied, &finance.CreditMovementAppliedEvent{})
	c.Register(finance.EventCashDayClosed, &finance.CashDayClosedEvent{})
	return c
}

// Register binds eventType to the concrete type of sample
func (c *Codec) Register(eventType string, sample shared.DomainEvent) {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c.mu.Lock()
	c.types[eventType] = t
	c.mu.Unlock()
}

// Encode marshals evt
func (c *Codec) Encode(evt shared.DomainEvent) ([]byte, error) {
	return json.Marshal(evt)
}

// Decode unmarshals data into the type registered for eventType
func (c *Codec) Decode(eventType string, data []byte) (shared.DomainEvent, error) {
	c.mu.RLock()
	t, ok := c.types[eventType]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	evt, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return evt, nil
}

// Types returns the registered event types, sorted
func (c *Codec) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
