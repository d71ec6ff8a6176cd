package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dukex/eca/pkg/persistence"
	"github.com/dukex/eca/pkg/persistence/file"
	"github.com/dukex/eca/pkg/persistence/postgresql"
	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/queue/redisstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewModelStore picks the raw model store by URL scheme. postgres:// and postgresql:// use
// PostgreSQL, anything else is a directory, optionally prefixed with file://.
func NewModelStore(ctx context.Context, logger *slog.Logger, url string) (persistence.Persistence, error) {
	switch parseProvider(url) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, url)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres model store: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(url), nil
	}
}

// NewTaskStore picks the deferred task store by URL scheme: "" or memory:// keep tasks in
// process, redis:// and postgres:// share them between workers. The returned closer
// releases the connection.
func NewTaskStore(ctx context.Context, logger *slog.Logger, url string) (queue.Store, io.Closer, error) {
	switch provider := parseProvider(url); provider {
	case "", "memory":
		return queue.NewMemoryStore(), nopCloser{}, nil
	case "redis", "rediss":
		store, err := redisstore.Connect(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis task store: %w", err)
		}

		return store, store, nil
	case "postgres", "postgresql":
		db, err := postgresql.Open(ctx, logger, url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres task store: %w", err)
		}

		store := postgresql.NewTaskStore(db)

		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unsupported task store: %s", provider)
	}
}

func parseProvider(url string) string {
	provider, _, found := strings.Cut(url, "://")
	if !found {
		return ""
	}

	return provider
}
