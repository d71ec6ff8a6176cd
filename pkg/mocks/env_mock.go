package mocks

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEnv is a mock implementation of protocol.Env interface. Logger and Now are not
// mocked: they return Log and Clock.
type MockEnv struct {
	mock.Mock

	Log   *slog.Logger
	Clock time.Time
}

func NewMockEnv(now time.Time) *MockEnv {
	return &MockEnv{
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock: now,
	}
}

func (m *MockEnv) Logger() *slog.Logger {
	return m.Log
}

func (m *MockEnv) Now() time.Time {
	return m.Clock
}

func (m *MockEnv) EnqueueTask(ctx context.Context, task models.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

func (m *MockEnv) Dispatch(ctx context.Context, eventName string, instance any) (*models.ExecutionReport, error) {
	args := m.Called(ctx, eventName, instance)

	report, _ := args.Get(0).(*models.ExecutionReport)

	return report, args.Error(1)
}
