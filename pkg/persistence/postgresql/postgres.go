// Package postgresql provides PostgreSQL persistence for raw process models and deferred tasks.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/persistence"
	"github.com/dukex/eca/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to databaseURL and brings the schema up to date.
func Open(ctx context.Context, logger *slog.Logger, databaseURL string) (*sql.DB, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Run migrations on initialization
	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := Open(ctx, logger, databaseURL)
	if err != nil {
		return nil, err
	}

	return &Persistence{
		db:     database,
		logger: logger.With("module", "postgresql_persistence"),
	}, nil
}

// DB exposes the underlying connection pool so other stores can share it.
func (p *Persistence) DB() *sql.DB {
	return p.db
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// RawModels returns every stored model ordered by id.
func (p *Persistence) RawModels(ctx context.Context) ([]models.RawModel, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT id, document FROM eca_models ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	raws := make([]models.RawModel, 0)

	for rows.Next() {
		var (
			id       string
			document []byte
		)

		err := rows.Scan(&id, &document)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}

		raw, err := decode(id, document)
		if err != nil {
			return nil, err
		}

		raws = append(raws, raw)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate models: %w", err)
	}

	return raws, nil
}

// RawModelByID returns the model stored under id.
func (p *Persistence) RawModelByID(ctx context.Context, id string) (models.RawModel, error) {
	var document []byte

	err := p.db.QueryRowContext(ctx, "SELECT document FROM eca_models WHERE id = $1", id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RawModel{}, persistence.NewModelError("Get", id, persistence.ErrModelNotFound)
	}

	if err != nil {
		return models.RawModel{}, fmt.Errorf("failed to query model %s: %w", id, err)
	}

	return decode(id, document)
}

// SaveRawModel inserts or replaces the model.
func (p *Persistence) SaveRawModel(ctx context.Context, raw models.RawModel) error {
	document, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal model %s: %w", raw.ID, err)
	}

	query := `
		INSERT INTO eca_models (id, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
	`

	_, err = p.db.ExecContext(ctx, query, raw.ID, document)
	if err != nil {
		return fmt.Errorf("failed to save model %s: %w", raw.ID, err)
	}

	p.logger.DebugContext(ctx, "Saved model", "model_id", raw.ID)

	return nil
}

// DeleteRawModel removes the model.
func (p *Persistence) DeleteRawModel(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM eca_models WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewModelError("Delete", id, persistence.ErrModelNotFound)
	}

	return nil
}

func decode(id string, document []byte) (models.RawModel, error) {
	var raw models.RawModel

	err := json.Unmarshal(document, &raw)
	if err != nil {
		return raw, persistence.NewModelError("Decode", id, fmt.Errorf("%w: %w", persistence.ErrInvalidModel, err))
	}

	return raw, nil
}
