// Package user implements the user service's write and read operations.
// Every mutation runs inside one database transaction that also carries the
// event's outbox records, which is what makes delivery reliable.
package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	domain "github.com/cschaible/go-microservices-kafka/internal/domain/user"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventbus/kafka/tracing"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// Dispatcher converts a domain event into broker-ready messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, event events.DomainEvent) ([]events.EncodedMessage, error)
}

// TxManager runs a function inside one database transaction bound to the
// context it passes down.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateUserInput carries the fields of a new user.
type CreateUserInput struct {
	Name         string
	Email        string
	Country      domain.IsoCountryCode
	PhoneNumbers []domain.PhoneNumber
}

// Service coordinates user persistence and event publication.
type Service struct {
	tx     TxManager
	repo   domain.Repository
	outbox outbox.Writer
	disp   Dispatcher

	logger *logger.Logger
	tracer trace.Tracer
}

// NewService wires the user service.
func NewService(
	tx TxManager,
	repo domain.Repository,
	outboxWriter outbox.Writer,
	dispatcher Dispatcher,
	log *logger.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{tx: tx, repo: repo, outbox: outboxWriter, disp: dispatcher, logger: log, tracer: tracer}
}

// CreateUser persists a new user and stages its creation event in the
// outbox, all in one transaction. Conversion failures roll the whole
// transaction back, so no user exists without its pending event.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "user_service.create_user")
	defer span.End()

	u := &domain.User{
		Identifier:   uuid.New(),
		Version:      0,
		Name:         input.Name,
		Email:        input.Email,
		Country:      input.Country,
		PhoneNumbers: input.PhoneNumbers,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeUserCreated, Payload: u})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Created user", "user_identifier", u.Identifier)
	return u, nil
}

// UpdateUser applies the new field values if expectedVersion matches the
// stored version. No event is published; downstream systems only consume
// user creations.
func (s *Service) UpdateUser(ctx context.Context, identifier uuid.UUID, expectedVersion int64, input CreateUserInput) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "user_service.update_user")
	defer span.End()

	u := &domain.User{
		Identifier:   identifier,
		Version:      expectedVersion,
		Name:         input.Name,
		Email:        input.Email,
		Country:      input.Country,
		PhoneNumbers: input.PhoneNumbers,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByIdentifier(ctx, identifier)
		if err != nil {
			return err
		}
		u.ID = existing.ID
		return s.repo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindUser returns the user or domain.ErrNotFound.
func (s *Service) FindUser(ctx context.Context, identifier uuid.UUID) (*domain.User, error) {
	return s.repo.FindByIdentifier(ctx, identifier)
}

// FindUsers lists all users.
func (s *Service) FindUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) stageEvent(ctx context.Context, event events.DomainEvent) error {
	messages, err := s.disp.Dispatch(ctx, event)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", event.Type, err)
	}

	traceParent := tracing.TraceParent(ctx)
	for _, msg := range messages {
		record := outbox.Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Key:       msg.Key,
			Payload:   msg.Payload,
			TraceID:   traceParent,
		}
		if err := s.outbox.Save(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
