package eventdispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

type stubConverter struct {
	handles map[events.EventType]bool
	msg     events.EncodedMessage
	err     error
	calls   int
}

func (s *stubConverter) Handles(eventType events.EventType) bool {
	return s.handles[eventType]
}

func (s *stubConverter) Convert(_ context.Context, _ events.DomainEvent) (events.EncodedMessage, error) {
	s.calls++
	return s.msg, s.err
}

func newTestDispatcher(converters ...events.EventConverter) *Dispatcher {
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewDispatcher(converters, logger.Noop(), tracer)
}

func TestDispatchRoutesToHandlingConverter(t *testing.T) {
	accommodation := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeAccommodationCreated: true},
		msg:     events.EncodedMessage{Topic: "accommodation", Partition: 2},
	}
	user := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeUserCreated: true},
	}

	d := newTestDispatcher(accommodation, user)

	messages, err := d.Dispatch(context.Background(), events.DomainEvent{
		Type: events.EventTypeAccommodationCreated,
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "accommodation", messages[0].Topic)
	assert.Equal(t, int32(2), messages[0].Partition)

	assert.Equal(t, 1, accommodation.calls)
	assert.Equal(t, 0, user.calls)
}

func TestDispatchFansOutToAllHandlingConverters(t *testing.T) {
	first := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeRoomTypeCreated: true},
		msg:     events.EncodedMessage{Topic: "a"},
	}
	second := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeRoomTypeCreated: true},
		msg:     events.EncodedMessage{Topic: "b"},
	}

	d := newTestDispatcher(first, second)

	messages, err := d.Dispatch(context.Background(), events.DomainEvent{
		Type: events.EventTypeRoomTypeCreated,
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "a", messages[0].Topic)
	assert.Equal(t, "b", messages[1].Topic)
}

func TestDispatchUnhandledEventType(t *testing.T) {
	d := newTestDispatcher(&stubConverter{handles: map[events.EventType]bool{}})

	_, err := d.Dispatch(context.Background(), events.DomainEvent{
		Type: events.EventTypeUserCreated,
	})
	require.Error(t, err)

	var unhandled *UnhandledEventTypeError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, events.EventTypeUserCreated, unhandled.EventType)
}

func TestDispatchConverterErrorAborts(t *testing.T) {
	failing := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeUserCreated: true},
		err:     errors.New("registry unreachable"),
	}
	after := &stubConverter{
		handles: map[events.EventType]bool{events.EventTypeUserCreated: true},
	}

	d := newTestDispatcher(failing, after)

	_, err := d.Dispatch(context.Background(), events.DomainEvent{
		Type: events.EventTypeUserCreated,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "registry unreachable")
	assert.Equal(t, 0, after.calls)
}
