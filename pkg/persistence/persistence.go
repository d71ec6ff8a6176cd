// Package persistence provides the storage abstraction for raw process models.
package persistence

import (
	"context"

	"github.com/dukex/eca/pkg/models"
)

// Persistence stores raw models between restarts. Compiled models are never stored.
type Persistence interface {
	RawModels(ctx context.Context) ([]models.RawModel, error)
	RawModelByID(ctx context.Context, id string) (models.RawModel, error)
	SaveRawModel(ctx context.Context, raw models.RawModel) error
	DeleteRawModel(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
