// Package eventdispatcher routes domain events to the converters that turn
// them into broker-ready messages.
package eventdispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/events"
	"github.com/cschaible/go-microservices-kafka/pkg/common/logger"
)

// UnhandledEventTypeError reports a domain event for which no registered
// converter declared responsibility. This is a wiring defect, not a runtime
// condition: every event type a service raises must have a converter.
type UnhandledEventTypeError struct {
	EventType events.EventType
}

func (e *UnhandledEventTypeError) Error() string {
	return fmt.Sprintf("no converter registered for event type %q", e.EventType)
}

// Dispatcher fans a domain event out to every converter that handles its
// type and collects the encoded messages. The converter set is fixed at
// construction, so dispatch is safe for concurrent use.
type Dispatcher struct {
	converters []events.EventConverter
	logger     *logger.Logger
	tracer     trace.Tracer
}

// NewDispatcher creates a Dispatcher over the given converters.
func NewDispatcher(converters []events.EventConverter, log *logger.Logger, tracer trace.Tracer) *Dispatcher {
	return &Dispatcher{converters: converters, logger: log, tracer: tracer}
}

// Dispatch converts the event with every converter that handles its type.
// The first converter error aborts the dispatch so the caller can roll the
// enclosing transaction back. If no converter handles the event type, an
// *UnhandledEventTypeError is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.DomainEvent) ([]events.EncodedMessage, error) {
	ctx, span := d.tracer.Start(ctx, "event_dispatcher.dispatch",
		trace.WithAttributes(attribute.String("event_type", string(event.Type))))
	defer span.End()

	var messages []events.EncodedMessage
	handled := false
	for _, converter := range d.converters {
		if !converter.Handles(event.Type) {
			continue
		}
		handled = true

		msg, err := converter.Convert(ctx, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "event conversion failed")
			return nil, fmt.Errorf("convert event %s: %w", event.Type, err)
		}
		messages = append(messages, msg)
	}

	if !handled {
		err := &UnhandledEventTypeError{EventType: event.Type}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error(ctx, "domain event has no registered converter", "event_type", event.Type)
		return nil, err
	}

	span.SetAttributes(attribute.Int("message_count", len(messages)))
	return messages, nil
}
