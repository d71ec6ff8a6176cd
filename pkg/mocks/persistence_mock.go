package mocks

import (
	"context"

	"github.com/dukex/eca/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) RawModels(ctx context.Context) ([]models.RawModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.RawModel), args.Error(1)
}

func (m *MockPersistence) RawModelByID(ctx context.Context, id string) (models.RawModel, error) {
	args := m.Called(ctx, id)

	raw, _ := args.Get(0).(models.RawModel)

	return raw, args.Error(1)
}

func (m *MockPersistence) SaveRawModel(ctx context.Context, raw models.RawModel) error {
	args := m.Called(ctx, raw)

	return args.Error(0)
}

func (m *MockPersistence) DeleteRawModel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
