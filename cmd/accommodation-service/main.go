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

	"github.com/riferrei/srclient"
	_ "go.uber.org/automaxprocs"

	accommodationapp "github.com/cschaible/go-microservices-kafka/internal/app/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/config"
	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/serialization"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventdispatcher"
	accommodationmongo "github.com/cschaible/go-microservices-kafka/internal/infra/storage/accommodation/mongodb"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage/mongodb"
	outboxmongo "github.com/cschaible/go-microservices-kafka/internal/infra/storage/outbox/mongodb"
	"github.com/cschaible/go-microservices-kafka/pkg/common"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
	"github.com/cschaible/go-microservices-kafka/pkg/common/otel"
)

const serviceType = "accommodation-service"

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
	if err := run(ctx, log, svcName); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, svcName string) error {
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
	txManager := mongodb.NewTxManager(client, log, tracer)

	registry := srclient.CreateSchemaRegistryClient(cfg.SchemaRegistry.URL)
	codec := serialization.NewRegistryCodec(registry, tracer)

	topic := events.TopicConfiguration{
		Name:       cfg.AccommodationTopic.Name,
		Partitions: cfg.AccommodationTopic.Partitions,
	}
	dispatcher := eventdispatcher.NewDispatcher([]events.EventConverter{
		accommodationapp.NewAccommodationConverter(codec, topic, tracer),
		accommodationapp.NewRoomTypeConverter(codec, topic, tracer),
	}, log, tracer)

	service := accommodationapp.NewService(
		txManager,
		accommodationmongo.NewAccommodationRepository(db, tracer),
		accommodationmongo.NewRoomTypeRepository(db, tracer),
		outboxmongo.NewStore(db, txManager, tracer),
		dispatcher,
		log,
		tracer,
	)
	// TODO: mount the HTTP transport in front of the service.
	_ = service

	ready.Store(true)
	log.Info(ctx, "startup", "status", "accommodation service ready")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown

	log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig.String())
	ready.Store(false)
	return nil
}
