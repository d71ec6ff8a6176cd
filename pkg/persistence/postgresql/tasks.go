package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/eca/pkg/models"
)

// TaskStore is a queue.Store backed by the eca_tasks table. Pop claims a row with
// FOR UPDATE SKIP LOCKED so concurrent workers never receive the same task.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore returns a store over a migrated database, see Open.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Push(ctx context.Context, task models.Task, visibleAt time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO eca_tasks (id, visible_at, payload) VALUES ($1, $2, $3)",
		task.ID, visibleAt.UTC(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to push task %s: %w", task.ID, err)
	}

	return nil
}

func (s *TaskStore) Pop(ctx context.Context, now time.Time) (models.Task, bool, error) {
	query := `
		DELETE FROM eca_tasks
		WHERE seq = (
			SELECT seq FROM eca_tasks
			WHERE visible_at <= $1
			ORDER BY visible_at, seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING payload
	`

	var payload []byte

	err := s.db.QueryRowContext(ctx, query, now.UTC()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, false, nil
	}

	if err != nil {
		return models.Task{}, false, fmt.Errorf("failed to pop task: %w", err)
	}

	var task models.Task

	err = json.Unmarshal(payload, &task)
	if err != nil {
		return models.Task{}, false, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return task, true, nil
}

func (s *TaskStore) Len(ctx context.Context) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM eca_tasks").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return n, nil
}

// Close closes the underlying pool.
func (s *TaskStore) Close() error {
	return s.db.Close()
}
