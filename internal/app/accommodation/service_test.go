package accommodation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	domain "github.com/cschaible/go-microservices-kafka/internal/domain/accommodation"
	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/internal/domain/outbox"
	"github.com/cschaible/go-microservices-kafka/internal/infra/eventdispatcher"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// fakeTxManager applies fn and, on error, restores the fakes it guards to
// their pre-transaction state.
type fakeTxManager struct {
	rollback []func()
}

func (m *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		for _, restore := range m.rollback {
			restore()
		}
		return err
	}
	return nil
}

type fakeAccommodationRepo struct {
	byID map[uuid.UUID]*domain.Accommodation
}

func newFakeAccommodationRepo() *fakeAccommodationRepo {
	return &fakeAccommodationRepo{byID: map[uuid.UUID]*domain.Accommodation{}}
}

func (r *fakeAccommodationRepo) Create(_ context.Context, a *domain.Accommodation) error {
	copied := *a
	r.byID[a.ID] = &copied
	return nil
}

func (r *fakeAccommodationRepo) Update(_ context.Context, a *domain.Accommodation) error {
	existing, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if existing.Version != a.Version {
		return domain.ErrVersionConflict
	}
	copied := *a
	copied.Version = a.Version + 1
	r.byID[a.ID] = &copied
	a.Version = copied.Version
	return nil
}

func (r *fakeAccommodationRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Accommodation, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccommodationRepo) FindAll(context.Context, string) ([]domain.Accommodation, error) {
	var all []domain.Accommodation
	for _, a := range r.byID {
		all = append(all, *a)
	}
	return all, nil
}

type fakeRoomTypeRepo struct {
	byID map[uuid.UUID]*domain.RoomType
}

func newFakeRoomTypeRepo() *fakeRoomTypeRepo {
	return &fakeRoomTypeRepo{byID: map[uuid.UUID]*domain.RoomType{}}
}

func (r *fakeRoomTypeRepo) Create(_ context.Context, rt *domain.RoomType) error {
	copied := *rt
	r.byID[rt.ID] = &copied
	return nil
}

func (r *fakeRoomTypeRepo) Update(_ context.Context, rt *domain.RoomType) error {
	if _, ok := r.byID[rt.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *rt
	r.byID[rt.ID] = &copied
	return nil
}

func (r *fakeRoomTypeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeRoomTypeRepo) FindByAccommodation(_ context.Context, accommodationID uuid.UUID) ([]domain.RoomType, error) {
	var found []domain.RoomType
	for _, rt := range r.byID {
		if rt.AccommodationID == accommodationID {
			found = append(found, *rt)
		}
	}
	return found, nil
}

type fakeOutbox struct {
	records []outbox.Record
}

func (o *fakeOutbox) Save(_ context.Context, record outbox.Record) error {
	o.records = append(o.records, record)
	return nil
}

func newFakeService(t *testing.T, encoder *fakeEncoder) (*Service, *fakeAccommodationRepo, *fakeRoomTypeRepo, *fakeOutbox) {
	t.Helper()

	tracer := noop.NewTracerProvider().Tracer("test")
	topic := events.TopicConfiguration{Name: "accommodation", Partitions: 6}

	repo := newFakeAccommodationRepo()
	roomTypes := newFakeRoomTypeRepo()
	outboxWriter := &fakeOutbox{}

	tx := &fakeTxManager{}
	tx.rollback = append(tx.rollback, func() {
		repo.byID = map[uuid.UUID]*domain.Accommodation{}
	})

	dispatcher := eventdispatcher.NewDispatcher([]events.EventConverter{
		NewAccommodationConverter(encoder, topic, tracer),
		NewRoomTypeConverter(encoder, topic, tracer),
	}, logger.Noop(), tracer)

	service := NewService(tx, repo, roomTypes, outboxWriter, dispatcher, logger.Noop(), tracer)
	return service, repo, roomTypes, outboxWriter
}

func createAccommodationInput() CreateAccommodationInput {
	return CreateAccommodationInput{
		Name:        "City Hotel",
		Description: "Central",
		Address: domain.Address{
			Street:      "Oranienstr",
			HouseNumber: 10,
			ZipCode:     "10997",
			City:        "Berlin",
			Country:     domain.CountryDE,
		},
	}
}

func TestCreateAccommodationStagesEvent(t *testing.T) {
	service, repo, _, outboxWriter := newFakeService(t, &fakeEncoder{})
	ctx := context.Background()

	created, err := service.CreateAccommodation(ctx, createAccommodationInput())
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Version)

	_, ok := repo.byID[created.ID]
	assert.True(t, ok)

	require.Len(t, outboxWriter.records, 1)
	record := outboxWriter.records[0]
	assert.Equal(t, "accommodation", record.Topic)
	assert.NotEmpty(t, record.Key)
	assert.NotEmpty(t, record.Payload)
}

func TestCreateAccommodationRollsBackOnConversionFailure(t *testing.T) {
	encoder := &fakeEncoder{err: errors.New("registry unreachable")}
	service, repo, _, outboxWriter := newFakeService(t, encoder)

	_, err := service.CreateAccommodation(context.Background(), createAccommodationInput())
	require.Error(t, err)

	assert.Empty(t, repo.byID)
	assert.Empty(t, outboxWriter.records)
}

func TestUpdateAccommodationVersionConflict(t *testing.T) {
	service, _, _, _ := newFakeService(t, &fakeEncoder{})
	ctx := context.Background()

	created, err := service.CreateAccommodation(ctx, createAccommodationInput())
	require.NoError(t, err)

	updated, err := service.UpdateAccommodation(ctx, created.ID, created.Version, createAccommodationInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	_, err = service.UpdateAccommodation(ctx, created.ID, 0, createAccommodationInput())
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestAddRoomTypeRequiresAccommodation(t *testing.T) {
	service, _, _, _ := newFakeService(t, &fakeEncoder{})

	_, err := service.AddRoomType(context.Background(), uuid.New(), RoomTypeInput{
		Size: 20, BedType: domain.BedTypeDouble,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRoomTypeLifecycleStagesEvents(t *testing.T) {
	service, _, roomTypes, outboxWriter := newFakeService(t, &fakeEncoder{})
	ctx := context.Background()

	created, err := service.CreateAccommodation(ctx, createAccommodationInput())
	require.NoError(t, err)

	rt, err := service.AddRoomType(ctx, created.ID, RoomTypeInput{
		Size: 24, Balcony: true, BedType: domain.BedTypeKing, TV: true, WiFi: true,
	})
	require.NoError(t, err)

	_, err = service.UpdateRoomType(ctx, created.ID, rt.ID, RoomTypeInput{
		Size: 26, BedType: domain.BedTypeKing,
	})
	require.NoError(t, err)

	require.NoError(t, service.DeleteRoomType(ctx, created.ID, rt.ID))
	assert.Empty(t, roomTypes.byID)

	// Create accommodation + create/update/delete room type.
	assert.Len(t, outboxWriter.records, 4)
}
