package finance

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Option configures the ambient collaborators shared by every ledger service
type Option func(*runtime)

// runtime carries what services need besides repositories
type runtime struct {
	clock     finance.Clock
	location  *time.Location
	logger    *zap.Logger
	publisher shared.EventPublisher
	metrics   *telemetry.LedgerMetrics
	// sweepConcurrency bounds the tenants reclassified in parallel
	sweepConcurrency int
}

func newRuntime(opts []Option) runtime {
	rt := runtime{
		clock:     time.Now,
		location:  time.UTC,
		logger:    zap.NewNop(),
		publisher: shared.NoOpEventPublisher{},

		sweepConcurrency: 4,
	}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

// WithClock overrides the source of "now"
func WithClock(clock finance.Clock) Option {
	return func(rt *runtime) {
		if clock != nil {
			rt.clock = clock
		}
	}
}

// WithLocation sets the time zone that decides which calendar day "today" is
func WithLocation(loc *time.Location) Option {
	return func(rt *runtime) {
		if loc != nil {
			rt.location = loc
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(rt *runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithEventPublisher sets where committed domain events go
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(rt *runtime) {
		if p != nil {
			rt.publisher = p
		}
	}
}

// WithMetrics sets the business metrics recorder
func WithMetrics(m *telemetry.LedgerMetrics) Option {
	return func(rt *runtime) {
		rt.metrics = m
	}
}

// WithSweepConcurrency bounds how many tenants an overdue sweep handles at once
func WithSweepConcurrency(n int) Option {
	return func(rt *runtime) {
		if n > 0 {
			rt.sweepConcurrency = n
		}
	}
}

func (rt runtime) today() time.Time {
	return rt.clock.Today(rt.location)
}

// publish hands committed events to the bus. Publishing happens after the
// transaction, so a failure here is logged and never undoes the write.
func (rt runtime) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, a := range aggregates {
		if a == nil {
			continue
		}
		events = append(events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
	rt.publishEvents(ctx, events...)
}

func (rt runtime) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := rt.publisher.Publish(ctx, events...); err != nil {
		rt.logger.Warn("failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
