package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/cschaible/go-microservices-kafka/internal/app/relay"
	"github.com/cschaible/go-microservices-kafka/internal/config"
	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/kafka"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage/mongodb"
	outboxmongo "github.com/cschaible/go-microservices-kafka/internal/infra/storage/outbox/mongodb"
	outboxpg "github.com/cschaible/go-microservices-kafka/internal/infra/storage/outbox/postgres"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage/postgres"
	"github.com/cschaible/go-microservices-kafka/pkg/common"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
	"github.com/cschaible/go-microservices-kafka/pkg/common/otel"
)

const serviceType = "outbox-relay"

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get hostname: %v\n", err)
		os.Exit(1)
	}

	svcName := fmt.Sprintf("%s-%s", serviceType, hostname)
	traceIDFn := func(ctx context.Context) string { return otel.GetTraceID(ctx) }
	log := logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logger.Events{}, map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	})

	ctx := context.Background()
	if err := run(ctx, log, svcName, hostname); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, svcName, hostname string) error {
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(serviceType)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ready := &atomic.Bool{}
	healthServer := common.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), ready)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Server().Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "shutting down health server", "err", err)
		}
	}()

	log.Info(ctx, "startup", "status", "initializing tracing support")

	traceProvider, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      svcName,
		ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		},
		Probability:      cfg.Telemetry.SamplingRatio,
		InsecureExporter: cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer teardown(ctx)

	tracer := traceProvider.Tracer(serviceType)

	var store outbox.Store
	switch cfg.Relay.Database {
	case "postgres":
		log.Info(ctx, "startup", "status", "connecting to postgres")

		pool, err := postgres.NewPool(ctx, &postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MinConns: cfg.Postgres.MinConns,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()

		store = outboxpg.NewStore(pool, tracer)

	case "mongodb":
		log.Info(ctx, "startup", "status", "connecting to mongodb")

		client, err := mongodb.Connect(ctx, &mongodb.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			MaxPoolSize:    cfg.Mongo.MaxPoolSize,
			MinPoolSize:    cfg.Mongo.MinPoolSize,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("connecting to mongodb: %w", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error(ctx, "disconnecting mongodb client", "err", err)
			}
		}()

		db := client.Database(cfg.Mongo.Database)
		store = outboxmongo.NewStore(db, mongodb.NewTxManager(client, log, tracer), tracer)

	default:
		return fmt.Errorf("unsupported relay database %q", cfg.Relay.Database)
	}

	metrics, err := relay.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("creating relay metrics: %w", err)
	}

	log.Info(ctx, "startup", "status", "connecting to kafka")

	// The transactional id must stay stable per relay instance so the
	// broker can fence zombie producers after a restart.
	publisher, err := kafka.ConnectWithRetry(ctx, &kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      svcName,
		TransactionID: fmt.Sprintf("%s-%s", cfg.Kafka.TransactionID, hostname),
	}, log, metrics, tracer)
	if err != nil {
		return fmt.Errorf("connecting to kafka: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error(ctx, "closing kafka publisher", "err", err)
		}
	}()

	r := relay.New(store, publisher, cfg.Relay.PageSize, log, tracer, metrics)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig.String())
		ready.Store(false)
		cancel()
	}()

	ready.Store(true)
	log.Info(ctx, "startup", "status", "outbox relay ready", "interval", cfg.Relay.Interval.String(), "page_size", cfg.Relay.PageSize)

	r.Run(runCtx, cfg.Relay.Interval)

	log.Info(ctx, "shutdown", "status", "shutdown complete")
	return nil
}
