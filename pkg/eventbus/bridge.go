package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/eca/pkg/events"
	"github.com/dukex/eca/pkg/models"
)

// Dispatcher is the engine entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventName string, instance any) *models.ExecutionReport
}

// Bridge feeds EventRaised messages from the bus into the engine and answers each with an
// ExecutionReported message keyed by the raised event id.
type Bridge struct {
	logger     *slog.Logger
	bus        EventBus
	dispatcher Dispatcher
}

func NewBridge(logger *slog.Logger, bus EventBus, dispatcher Dispatcher) *Bridge {
	return &Bridge{
		logger:     logger.With("module", "event_bridge"),
		bus:        bus,
		dispatcher: dispatcher,
	}
}

// Start registers the handler and begins consuming.
func (b *Bridge) Start(ctx context.Context) error {
	err := b.bus.Handle(events.EventRaisedEvent, b.handleEventRaised)
	if err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	err = b.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	b.logger.InfoContext(ctx, "Event bridge started", "topic", events.Topic)

	return nil
}

func (b *Bridge) handleEventRaised(ctx context.Context, event any) error {
	raised, ok := event.(*events.EventRaised)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if raised.EventName == "" {
		b.logger.WarnContext(ctx, "Dropping raised event without a name", "id", raised.ID)

		return nil
	}

	logger := b.logger.With("id", raised.ID, "event_name", raised.EventName)
	logger.DebugContext(ctx, "Dispatching raised event")

	payload := raised.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	report := b.dispatcher.Dispatch(ctx, raised.EventName, payload)

	if report.Failed() {
		logger.WarnContext(ctx, "Raised event finished with failures", "report_id", report.ID)
	}

	// The dispatch already happened, so a lost report must not cause a redelivery.
	err := b.bus.Publish(ctx, raised.ID, events.NewExecutionReported(raised.ID, report))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish execution report", "error", err)
	}

	return nil
}
