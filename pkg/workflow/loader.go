package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/eca/pkg/models"
)

// ModelStore is where raw models are kept between restarts.
type ModelStore interface {
	RawModels(ctx context.Context) ([]models.RawModel, error)
	SaveRawModel(ctx context.Context, raw models.RawModel) error
	DeleteRawModel(ctx context.Context, id string) error
}

// Loader connects a ModelStore to the Model Registry through the compiler.
type Loader struct {
	logger     *slog.Logger
	compiler   *Compiler
	repository *Repository
	store      ModelStore
}

func NewLoader(logger *slog.Logger, compiler *Compiler, repository *Repository, store ModelStore) *Loader {
	return &Loader{
		logger:     logger.With("module", "model_loader"),
		compiler:   compiler,
		repository: repository,
		store:      store,
	}
}

// LoadAll compiles and registers every stored model. Models that fail to compile are
// skipped and reported in the returned error; the others are still registered.
func (l *Loader) LoadAll(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}

	raws, err := l.store.RawModels(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read models: %w", err)
	}

	var (
		loaded int
		errs   []error
	)

	for _, raw := range raws {
		model, err := l.compiler.Compile(raw)
		if err != nil {
			l.logger.ErrorContext(ctx, "Model failed to compile", "model_id", raw.ID, "error", err)
			errs = append(errs, err)

			continue
		}

		l.repository.Register(model)
		loaded++
	}

	l.logger.InfoContext(ctx, "Loaded models", "loaded", loaded, "rejected", len(errs))

	return loaded, errors.Join(errs...)
}

// Apply compiles raw, stores it and registers it. A model that fails to compile is neither
// stored nor registered.
func (l *Loader) Apply(ctx context.Context, raw models.RawModel) (*ProcessModel, error) {
	model, err := l.compiler.Compile(raw)
	if err != nil {
		return nil, err
	}

	if l.store != nil {
		if err := l.store.SaveRawModel(ctx, raw); err != nil {
			return nil, fmt.Errorf("failed to store model %s: %w", raw.ID, err)
		}
	}

	l.repository.Register(model)

	return model, nil
}

// Remove unregisters the model with id and deletes it from the store.
func (l *Loader) Remove(ctx context.Context, id string) error {
	if err := l.repository.Unregister(id); err != nil {
		return err
	}

	if l.store != nil {
		if err := l.store.DeleteRawModel(ctx, id); err != nil {
			return fmt.Errorf("failed to delete stored model %s: %w", id, err)
		}
	}

	return nil
}
