// Package mongodb provides the MongoDB client setup and the multi-document
// transaction helper shared by all repositories backed by MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// Config contains the MongoDB connection settings.
type Config struct {
	// URI is the MongoDB connection string, including the default database.
	URI string

	// Database is the database all collections live in.
	Database string

	// MaxPoolSize bounds the number of pooled connections. Zero keeps the
	// driver default.
	MaxPoolSize uint64

	// MinPoolSize keeps a floor of warm connections. Zero keeps the driver
	// default.
	MinPoolSize uint64

	// ConnectTimeout bounds the initial connection handshake. Zero keeps
	// the driver default.
	ConnectTimeout time.Duration
}

// Connect establishes a MongoDB client with OpenTelemetry command tracing
// and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg *Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMonitor(otelmongo.NewMonitor())

	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}
