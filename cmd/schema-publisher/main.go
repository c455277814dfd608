package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/riferrei/srclient"
	_ "go.uber.org/automaxprocs"

	"github.com/cschaible/go-microservices-kafka/internal/config"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/serialization"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

const serviceType = "schema-publisher"

// schema-publisher registers every Avro schema with the schema registry.
// It runs once per deployment, before the services start. Registration is
// idempotent: re-registering an identical schema returns the existing id.
func main() {
	log := logger.New(os.Stdout, logger.LevelInfo, serviceType, nil)

	ctx := context.Background()
	if err := run(ctx, log); err != nil {
		log.Error(ctx, "schema registration failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	cfg, err := config.Load(serviceType)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry := srclient.CreateSchemaRegistryClient(cfg.SchemaRegistry.URL)

	schemas := serialization.Schemas()
	subjects := make([]string, 0, len(schemas))
	for subject := range schemas {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		schema, err := registry.CreateSchema(subject, schemas[subject], srclient.Avro)
		if err != nil {
			return fmt.Errorf("registering schema %s: %w", subject, err)
		}
		log.Info(ctx, "Registered schema", "subject", subject, "id", schema.ID(), "version", schema.Version())
	}

	log.Info(ctx, "All schemas registered", "count", len(subjects))
	return nil
}
