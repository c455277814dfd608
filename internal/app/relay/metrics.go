package relay

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/kafka"
)

const namespace = "outbox_relay"

// Metrics defines metrics operations needed by the outbox relay.
type Metrics interface {
	// Broker metrics
	kafka.BrokerMetrics

	// Relay metrics
	ObservePagePublished(ctx context.Context, recordCount int)
	IncRelayError(ctx context.Context)
}

type relayMetrics struct {
	// Broker metrics
	messagesPublished metric.Int64Counter
	publishErrors     metric.Int64Counter

	// Relay metrics
	pagesPublished   metric.Int64Counter
	recordsPublished metric.Int64Counter
	relayErrors      metric.Int64Counter
}

var _ Metrics = (*relayMetrics)(nil)

// NewMetrics creates the relay's metric instruments.
func NewMetrics(mp metric.MeterProvider) (*relayMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(relayMetrics)
	var err error

	if m.messagesPublished, err = meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of messages published"),
	); err != nil {
		return nil, err
	}

	if m.publishErrors, err = meter.Int64Counter(
		"publish_errors_total",
		metric.WithDescription("Total number of publish errors"),
	); err != nil {
		return nil, err
	}

	if m.pagesPublished, err = meter.Int64Counter(
		"pages_published_total",
		metric.WithDescription("Total number of outbox pages drained"),
	); err != nil {
		return nil, err
	}

	if m.recordsPublished, err = meter.Int64Counter(
		"records_published_total",
		metric.WithDescription("Total number of outbox records drained"),
	); err != nil {
		return nil, err
	}

	if m.relayErrors, err = meter.Int64Counter(
		"relay_errors_total",
		metric.WithDescription("Total number of failed relay iterations"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *relayMetrics) IncMessagePublished(ctx context.Context, topic string) {
	m.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *relayMetrics) IncPublishError(ctx context.Context, topic string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *relayMetrics) ObservePagePublished(ctx context.Context, recordCount int) {
	m.pagesPublished.Add(ctx, 1)
	m.recordsPublished.Add(ctx, int64(recordCount))
}

func (m *relayMetrics) IncRelayError(ctx context.Context) {
	m.relayErrors.Add(ctx, 1)
}
