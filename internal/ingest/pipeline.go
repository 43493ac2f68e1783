// Package ingest accepts one inbound event at a time:
// validate, dedupe, enrich, deliver, acknowledge.
//
// Delivery is at-most-once. The event id is recorded before the sink write,
// so when the write fails the id stays recorded and a client retry is
// acknowledged as a duplicate without a second delivery attempt.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PratikDhanave/game-event-tracking/internal/dedup"
	"github.com/PratikDhanave/game-event-tracking/internal/metrics"
	"github.com/PratikDhanave/game-event-tracking/internal/models"
	"github.com/PratikDhanave/game-event-tracking/internal/sink"
)

// ReceivedAtLayout is ISO-8601 UTC with microseconds and an explicit Z.
const ReceivedAtLayout = "2006-01-02T15:04:05.000000Z"

// Pipeline is safe for concurrent use as long as its guard and sink are.
type Pipeline struct {
	guard   dedup.Guard
	sink    sink.Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the receipt clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithMetrics records pipeline outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(guard dedup.Guard, s sink.Sink, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		guard:  guard,
		sink:   s,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Accept runs body through the pipeline as an event of kind.
//
// Errors are *models.ValidationError for bad payloads and *sink.DeliveryError
// when the sink rejects the write. Anything else is an internal failure.
func (p *Pipeline) Accept(ctx context.Context, kind models.EventType, body []byte) (models.Accepted, error) {
	p.count(func(m *metrics.Metrics) { m.EventsReceived.WithLabelValues(string(kind)).Inc() })

	ev, err := models.Validate(kind, body)
	if err != nil {
		p.reject(kind, "validation")
		return models.Accepted{}, err
	}

	dup, err := p.guard.CheckAndRecord(ctx, ev.ID())
	if err != nil {
		p.reject(kind, "dedup")
		return models.Accepted{}, fmt.Errorf("check event %s: %w", ev.ID(), err)
	}
	if dup {
		p.logger.Debug("duplicate event acknowledged",
			zap.String("event_id", ev.ID()),
			zap.String("event_type", string(kind)),
		)
		p.count(func(m *metrics.Metrics) { m.EventsDuplicate.WithLabelValues(string(kind)).Inc() })
		return models.NewAccepted(ev.ID()), nil
	}

	payload, err := ev.Fields()
	if err != nil {
		p.reject(kind, "internal")
		return models.Accepted{}, fmt.Errorf("encode event %s: %w", ev.ID(), err)
	}
	payload["received_at"] = p.now().UTC().Format(ReceivedAtLayout)

	if err := p.deliver(ctx, payload); err != nil {
		p.reject(kind, "delivery")
		p.logger.Error("event delivery failed, id stays recorded",
			zap.String("event_id", ev.ID()),
			zap.String("event_type", string(kind)),
			zap.Error(err),
		)
		return models.Accepted{}, err
	}

	p.count(func(m *metrics.Metrics) { m.EventsDelivered.WithLabelValues(string(kind)).Inc() })
	return models.NewAccepted(ev.ID()), nil
}

func (p *Pipeline) deliver(ctx context.Context, payload map[string]any) error {
	start := time.Now()
	err := p.sink.PutEvent(ctx, payload)

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.count(func(m *metrics.Metrics) {
		m.SinkLatency.WithLabelValues(SinkName(p.sink), status).Observe(time.Since(start).Seconds())
	})

	if err != nil {
		var derr *sink.DeliveryError
		if !errors.As(err, &derr) {
			err = &sink.DeliveryError{Sink: SinkName(p.sink), EventID: fmt.Sprint(payload["event_id"]), Err: err}
		}
	}
	return err
}

func (p *Pipeline) reject(kind models.EventType, reason string) {
	p.count(func(m *metrics.Metrics) { m.EventsRejected.WithLabelValues(string(kind), reason).Inc() })
}

func (p *Pipeline) count(fn func(*metrics.Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}

// SinkName labels s for logs and metrics.
func SinkName(s sink.Sink) string {
	if n, ok := s.(sink.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
