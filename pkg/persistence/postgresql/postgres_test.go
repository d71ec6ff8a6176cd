package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/persistence"
	"github.com/dukex/eca/pkg/persistence/postgresql"
	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/queue/queuetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDB(t *testing.T) *postgresql.Persistence {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("eca_test"),
		postgres.WithUsername("eca"),
		postgres.WithPassword("eca"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func truncate(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	_, err := db.ExecContext(t.Context(), "TRUNCATE "+table)
	require.NoError(t, err)
}

func TestPersistence(t *testing.T) {
	store := setupTestDB(t)

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, store.HealthCheck(t.Context()))
	})

	t.Run("save, replace and delete", func(t *testing.T) {
		truncate(t, store.DB(), "eca_models")

		raw := models.RawModel{
			ID:      "ping",
			Enabled: true,
			Weight:  1,
			Nodes: []models.RawNode{
				{ID: "ping", Kind: models.PluginKindEvent, Plugin: "custom", Successors: []models.RawSuccessor{{Target: "pong"}}},
				{ID: "pong", Kind: models.PluginKindAction, Plugin: "log", Config: map[string]string{"message": "Pong!"}},
			},
		}

		require.NoError(t, store.SaveRawModel(t.Context(), raw))

		raw.Weight = 5
		require.NoError(t, store.SaveRawModel(t.Context(), raw))

		raws, err := store.RawModels(t.Context())
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, raw, raws[0])

		got, err := store.RawModelByID(t.Context(), "ping")
		require.NoError(t, err)
		assert.Equal(t, 5, got.Weight)

		require.NoError(t, store.DeleteRawModel(t.Context(), "ping"))

		_, err = store.RawModelByID(t.Context(), "ping")
		assert.True(t, persistence.IsModelNotFound(err))

		err = store.DeleteRawModel(t.Context(), "ping")
		assert.True(t, persistence.IsModelNotFound(err))
	})
}

func TestTaskStore(t *testing.T) {
	store := setupTestDB(t)

	queuetest.TestStore(t, func(t *testing.T) queue.Store {
		truncate(t, store.DB(), "eca_tasks")

		return postgresql.NewTaskStore(store.DB())
	})
}
