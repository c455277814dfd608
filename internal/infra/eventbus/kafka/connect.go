package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// ConnectWithRetry establishes the transactional publisher with exponential
// backoff. It retries failed connection attempts for up to 5 minutes,
// starting with 5 second intervals, which covers broker unavailability
// during rolling deployments.
func ConnectWithRetry(
	ctx context.Context,
	cfg *Config,
	log *logger.Logger,
	metrics BrokerMetrics,
	tracer trace.Tracer,
) (*TransactionalPublisher, error) {
	var publisher *TransactionalPublisher

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		publisher, err = NewTransactionalPublisher(cfg, log, metrics, tracer)
		if err != nil {
			log.Warn(ctx, "Failed to connect to Kafka, will retry", "err", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect to kafka after retries: %w", err)
	}
	return publisher, nil
}
