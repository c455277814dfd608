// Package kafka provides the Kafka producer used to drain the transactional
// outbox. All records of one outbox page are published inside a single
// producer transaction, so a page is either fully visible to consumers or
// not at all.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/kafka/tracing"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// BrokerMetrics defines metrics operations needed to monitor Kafka message handling.
type BrokerMetrics interface {
	IncMessagePublished(ctx context.Context, topic string)
	IncPublishError(ctx context.Context, topic string)
}

// Config contains settings for connecting to Kafka as a transactional producer.
type Config struct {
	// Brokers is a list of Kafka broker addresses to connect to.
	Brokers []string

	// ClientID uniquely identifies this client to the Kafka cluster.
	ClientID string

	// TransactionID is the transactional id of the producer. It must be
	// stable across restarts of the same relay instance so the broker can
	// fence zombie producers.
	TransactionID string
}

// TransactionalPublisher publishes outbox pages under Kafka producer
// transactions. Messages carry pre-encoded keys and payloads and are routed
// to the partition recorded on the outbox row, never re-partitioned.
type TransactionalPublisher struct {
	producer      sarama.SyncProducer
	transactionID string

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics BrokerMetrics
}

// NewTransactionalPublisher creates a transactional producer from the provided
// configuration and verifies the broker handshake.
func NewTransactionalPublisher(
	cfg *Config,
	logger *logger.Logger,
	metrics BrokerMetrics,
	tracer trace.Tracer,
) (*TransactionalPublisher, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.ClientID = cfg.ClientID
	producerConfig.Version = sarama.V2_8_0_0

	// Transactional producers require idempotence, full acks and a single
	// in-flight request per broker connection.
	producerConfig.Producer.Idempotent = true
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Net.MaxOpenRequests = 1
	producerConfig.Producer.Transaction.ID = cfg.TransactionID
	producerConfig.Producer.Transaction.Timeout = 30 * time.Second

	// Partitions were assigned when the outbox row was written; honor them.
	producerConfig.Producer.Partitioner = sarama.NewManualPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactional kafka producer: %w", err)
	}

	return &TransactionalPublisher{
		producer:      producer,
		transactionID: cfg.TransactionID,
		logger:        logger,
		tracer:        tracer,
		metrics:       metrics,
	}, nil
}

// PublishPage sends all records of one outbox page inside a single producer
// transaction. On any failure the transaction is aborted and an error is
// returned; the caller keeps the rows in the outbox and retries later.
func (p *TransactionalPublisher) PublishPage(ctx context.Context, records []outbox.Record) error {
	if len(records) == 0 {
		return nil
	}

	ctx, span := tracing.StartTransactionSpan(ctx, p.transactionID, p.tracer)
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	messages := make([]*sarama.ProducerMessage, 0, len(records))
	for _, record := range records {
		msg := &sarama.ProducerMessage{
			Topic:     record.Topic,
			Partition: record.Partition,
			Key:       sarama.ByteEncoder(record.Key),
			Value:     sarama.ByteEncoder(record.Payload),
		}

		// Each message reports back to the trace of the request that wrote
		// the outbox row, not the relay tick that drained it.
		recordCtx := tracing.ContextWithTraceParent(ctx, record.TraceID)
		recordCtx, produceSpan := tracing.StartProducerSpan(recordCtx, record.Topic, p.tracer)
		tracing.InjectTraceContext(recordCtx, msg)
		produceSpan.End()

		messages = append(messages, msg)
	}

	if err := p.producer.BeginTxn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin transaction failed")
		return fmt.Errorf("begin kafka transaction: %w", err)
	}

	if err := p.producer.SendMessages(messages); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		for _, record := range records {
			if p.metrics != nil {
				p.metrics.IncPublishError(ctx, record.Topic)
			}
		}
		return p.abort(ctx, fmt.Errorf("send %d messages: %w", len(messages), err))
	}

	if err := p.producer.CommitTxn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return p.abort(ctx, fmt.Errorf("commit kafka transaction: %w", err))
	}

	if p.metrics != nil {
		for _, record := range records {
			p.metrics.IncMessagePublished(ctx, record.Topic)
		}
	}
	p.logger.Debug(ctx, "Published outbox page to Kafka", "record_count", len(records))

	return nil
}

// abort rolls the current transaction back. A producer in a fatal state
// cannot abort; the error is surfaced so the caller can recreate the
// producer.
func (p *TransactionalPublisher) abort(ctx context.Context, cause error) error {
	status := p.producer.TxnStatus()
	if status&sarama.ProducerTxnFlagFatalError != 0 {
		return fmt.Errorf("producer in fatal state: %w", cause)
	}
	if status&sarama.ProducerTxnFlagAbortableError != 0 || status&sarama.ProducerTxnFlagInTransaction != 0 {
		if abortErr := p.producer.AbortTxn(); abortErr != nil {
			p.logger.Error(ctx, "Failed to abort kafka transaction", "error", abortErr)
			return fmt.Errorf("abort kafka transaction after %v: %w", cause, abortErr)
		}
	}
	return cause
}

// Close shuts the underlying producer down.
func (p *TransactionalPublisher) Close() error {
	return p.producer.Close()
}
