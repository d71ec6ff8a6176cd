package eventbus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/eca/pkg/channels/gochannel"
	"github.com/dukex/eca/pkg/eventbus"
	"github.com/dukex/eca/pkg/events"
	"github.com/dukex/eca/pkg/mocks"
	"github.com/dukex/eca/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
	seen  []any
}

func (d *recordingDispatcher) Dispatch(_ context.Context, eventName string, instance any) *models.ExecutionReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, eventName)
	d.seen = append(d.seen, instance)

	return &models.ExecutionReport{ID: "report-" + eventName, EventName: eventName}
}

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestBridge_DispatchesAndReports(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	dispatcher := &recordingDispatcher{}

	reports := make(chan *events.ExecutionReported, 1)
	require.NoError(t, bus.Handle(events.ExecutionReportedEvent, func(_ context.Context, event any) error {
		reports <- event.(*events.ExecutionReported)

		return nil
	}))

	bridge := eventbus.NewBridge(slog.Default(), bus, dispatcher)
	require.NoError(t, bridge.Start(t.Context()))

	raised := events.NewEventRaised("custom:ping", map[string]any{"user": "ana"})
	require.NoError(t, bus.Publish(t.Context(), raised.ID, raised))

	select {
	case reported := <-reports:
		assert.Equal(t, raised.ID, reported.RaisedID)
		require.NotNil(t, reported.Report)
		assert.Equal(t, "report-custom:ping", reported.Report.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no execution report received")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()

	assert.Equal(t, []string{"custom:ping"}, dispatcher.calls)
	assert.Equal(t, map[string]any{"user": "ana"}, dispatcher.seen[0])
}

func TestBridge_DropsNamelessEvents(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	dispatcher := &recordingDispatcher{}

	reports := make(chan *events.ExecutionReported, 2)
	require.NoError(t, bus.Handle(events.ExecutionReportedEvent, func(_ context.Context, event any) error {
		reports <- event.(*events.ExecutionReported)

		return nil
	}))

	require.NoError(t, eventbus.NewBridge(slog.Default(), bus, dispatcher).Start(t.Context()))

	nameless := events.NewEventRaised("", nil)
	require.NoError(t, bus.Publish(t.Context(), nameless.ID, nameless))

	named := events.NewEventRaised("custom:pong", nil)
	require.NoError(t, bus.Publish(t.Context(), named.ID, named))

	select {
	case reported := <-reports:
		assert.Equal(t, named.ID, reported.RaisedID)
	case <-time.After(5 * time.Second):
		t.Fatal("no execution report received")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()

	assert.Equal(t, []string{"custom:pong"}, dispatcher.calls)
	assert.Equal(t, map[string]any{}, dispatcher.seen[0])
}

func TestBridge_StartFailsWhenHandleFails(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.EventRaisedEvent, mock.Anything).Return(errors.New("closed"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := eventbus.NewBridge(logger, bus, &recordingDispatcher{}).Start(t.Context())
	require.ErrorContains(t, err, "failed to register event handler")

	bus.AssertNotCalled(t, "Subscribe", mock.Anything)
}

func TestBridge_PublishFailureIsNotRedelivered(t *testing.T) {
	var handler eventbus.EventHandler

	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.EventRaisedEvent, mock.Anything).Run(func(args mock.Arguments) {
		handler = args.Get(1).(eventbus.EventHandler)
	}).Return(nil)
	bus.On("Subscribe", mock.Anything).Return(nil)
	bus.On("Publish", mock.Anything, "raised-1", mock.AnythingOfType("*events.ExecutionReported")).
		Return(errors.New("broker down"))

	dispatcher := &recordingDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, eventbus.NewBridge(logger, bus, dispatcher).Start(t.Context()))
	require.NotNil(t, handler)

	raised := events.NewEventRaised("custom:ping", nil)
	raised.ID = "raised-1"

	require.NoError(t, handler(t.Context(), raised))
	assert.Equal(t, []string{"custom:ping"}, dispatcher.calls)
	assert.Equal(t, map[string]any{}, dispatcher.seen[0])

	bus.AssertExpectations(t)
}
