package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// unknownCommitLabel marks a commit whose outcome the server could not
// report. The commit may or may not have applied; retrying it is safe
// because the server deduplicates the commit by transaction number.
const unknownCommitLabel = "UnknownTransactionCommitResult"

// TxManager runs callbacks inside MongoDB multi-document transactions with
// majority read and write concerns. The business mutation and its outbox
// writes share one callback, so both commit or neither does.
type TxManager struct {
	client *mongo.Client
	logger *logger.Logger
	tracer trace.Tracer
}

// NewTxManager creates a transaction manager over the given client.
func NewTxManager(client *mongo.Client, log *logger.Logger, tracer trace.Tracer) *TxManager {
	return &TxManager{client: client, logger: log, tracer: tracer}
}

// Transactional starts a session and a transaction, runs fn with the session
// context, and commits on success or aborts on error. Ambiguous commit
// outcomes are retried until the server reports a definite result; all other
// commit errors are returned as-is.
func (m *TxManager) Transactional(ctx context.Context, fn func(ctx mongo.SessionContext) error) error {
	ctx, span := m.tracer.Start(ctx, "mongodb.transaction")
	defer span.End()

	session, err := m.client.StartSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start session failed")
		return fmt.Errorf("start mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := session.StartTransaction(txOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}

		if err := fn(sessCtx); err != nil {
			if abortErr := session.AbortTransaction(sessCtx); abortErr != nil {
				m.logger.Error(sessCtx, "Failed to abort mongodb transaction", "error", abortErr)
			}
			return err
		}

		return commitWithRetry(sessCtx, session)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
	}
	return err
}

// WithinTransaction adapts Transactional to callers that only need a plain
// context. The session context is passed down as a context.Context, which
// repository calls pick up transparently.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Transactional(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

// committer is the subset of mongo.Session needed to finish a transaction.
type committer interface {
	CommitTransaction(ctx context.Context) error
}

// commitWithRetry commits the transaction, retrying while the server cannot
// tell whether the commit applied. The retry loop stops on success, on any
// definite error, or when the context is cancelled.
func commitWithRetry(ctx context.Context, session committer) error {
	for {
		err := session.CommitTransaction(ctx)
		if err == nil {
			return nil
		}
		if !hasErrorLabel(err, unknownCommitLabel) {
			return fmt.Errorf("commit transaction: %w", err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("commit transaction: %w", ctx.Err())
		}
	}
}

func hasErrorLabel(err error, label string) bool {
	var labeled interface{ HasErrorLabel(string) bool }
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel(label)
	}
	return false
}
