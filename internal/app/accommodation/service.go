// Package accommodation implements the accommodation service's write and
// read operations. Every mutation runs inside one database transaction that
// also carries the event's outbox records, which is what makes delivery
// reliable.
package accommodation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
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

// CreateAccommodationInput carries the fields of a new accommodation.
type CreateAccommodationInput struct {
	Name        string
	Description string
	Address     domain.Address
}

// RoomTypeInput carries the fields of a room type.
type RoomTypeInput struct {
	Size    uint16
	Balcony bool
	BedType domain.BedType
	TV      bool
	WiFi    bool
}

// Service coordinates accommodation persistence and event publication.
type Service struct {
	tx        TxManager
	repo      domain.Repository
	roomTypes domain.RoomTypeRepository
	outbox    outbox.Writer
	disp      Dispatcher

	logger *logger.Logger
	tracer trace.Tracer
}

// NewService wires the accommodation service.
func NewService(
	tx TxManager,
	repo domain.Repository,
	roomTypes domain.RoomTypeRepository,
	outboxWriter outbox.Writer,
	dispatcher Dispatcher,
	log *logger.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{
		tx:        tx,
		repo:      repo,
		roomTypes: roomTypes,
		outbox:    outboxWriter,
		disp:      dispatcher,
		logger:    log,
		tracer:    tracer,
	}
}

// CreateAccommodation persists a new accommodation and stages its creation
// event in the outbox, all in one transaction.
func (s *Service) CreateAccommodation(ctx context.Context, input CreateAccommodationInput) (*domain.Accommodation, error) {
	ctx, span := s.tracer.Start(ctx, "accommodation_service.create_accommodation")
	defer span.End()

	a := &domain.Accommodation{
		ID:          uuid.New(),
		Version:     0,
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeAccommodationCreated, Payload: a})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Created accommodation", "accommodation_id", a.ID)
	return a, nil
}

// UpdateAccommodation applies the new field values if expectedVersion
// matches the stored version and stages the update event. The event key
// carries the incremented version.
func (s *Service) UpdateAccommodation(ctx context.Context, id uuid.UUID, expectedVersion int64, input CreateAccommodationInput) (*domain.Accommodation, error) {
	ctx, span := s.tracer.Start(ctx, "accommodation_service.update_accommodation")
	defer span.End()

	a := &domain.Accommodation{
		ID:          id,
		Version:     expectedVersion,
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeAccommodationUpdated, Payload: a})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindAccommodation returns the accommodation or domain.ErrNotFound.
func (s *Service) FindAccommodation(ctx context.Context, id uuid.UUID) (*domain.Accommodation, error) {
	return s.repo.FindByID(ctx, id)
}

// FindAccommodations lists accommodations, optionally filtered by a name
// fragment.
func (s *Service) FindAccommodations(ctx context.Context, nameFilter string) ([]domain.Accommodation, error) {
	return s.repo.FindAll(ctx, nameFilter)
}

// AddRoomType attaches a new room type to an accommodation and stages its
// creation event. The parent accommodation must exist.
func (s *Service) AddRoomType(ctx context.Context, accommodationID uuid.UUID, input RoomTypeInput) (*domain.RoomType, error) {
	ctx, span := s.tracer.Start(ctx, "accommodation_service.add_room_type")
	defer span.End()

	rt := &domain.RoomType{
		ID:              uuid.New(),
		AccommodationID: accommodationID,
		Size:            input.Size,
		Balcony:         input.Balcony,
		BedType:         input.BedType,
		TV:              input.TV,
		WiFi:            input.WiFi,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByID(ctx, accommodationID); err != nil {
			return err
		}
		if err := s.roomTypes.Create(ctx, rt); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeRoomTypeCreated, Payload: rt})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Added room type", "room_type_id", rt.ID, "accommodation_id", accommodationID)
	return rt, nil
}

// UpdateRoomType replaces the room type's fields and stages the update
// event. Room types have no version, so concurrent updates are last write
// wins.
func (s *Service) UpdateRoomType(ctx context.Context, accommodationID, id uuid.UUID, input RoomTypeInput) (*domain.RoomType, error) {
	ctx, span := s.tracer.Start(ctx, "accommodation_service.update_room_type")
	defer span.End()

	rt := &domain.RoomType{
		ID:              id,
		AccommodationID: accommodationID,
		Size:            input.Size,
		Balcony:         input.Balcony,
		BedType:         input.BedType,
		TV:              input.TV,
		WiFi:            input.WiFi,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.roomTypes.Update(ctx, rt); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeRoomTypeUpdated, Payload: rt})
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// DeleteRoomType removes the room type and stages the delete event.
func (s *Service) DeleteRoomType(ctx context.Context, accommodationID, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "accommodation_service.delete_room_type")
	defer span.End()

	rt := &domain.RoomType{ID: id, AccommodationID: accommodationID}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.roomTypes.Delete(ctx, id); err != nil {
			return err
		}
		return s.stageEvent(ctx, events.DomainEvent{Type: events.EventTypeRoomTypeDeleted, Payload: rt})
	})
}

// FindRoomTypes lists the room types of one accommodation.
func (s *Service) FindRoomTypes(ctx context.Context, accommodationID uuid.UUID) ([]domain.RoomType, error) {
	return s.roomTypes.FindByAccommodation(ctx, accommodationID)
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
