package models

import "time"

// TaskProcessingEvent is the event name dispatched when a deferred task becomes due.
const TaskProcessingEvent = "task:processing"

// Task is a unit of deferred work. Data is a snapshot of the enqueuing run's tokens and
// must be JSON-serializable when a durable store is used.
type Task struct {
	ID         string         `json:"id"`
	Name       string         `json:"task_name"`
	Value      *string        `json:"task_value,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	NotBefore  time.Time      `json:"not_before"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// ValueOrEmpty returns the task value or the empty string.
func (t Task) ValueOrEmpty() string {
	if t.Value == nil {
		return ""
	}

	return *t.Value
}

// DueIn returns how long until the task may be processed; zero or negative means due.
func (t Task) DueIn(now time.Time) time.Duration {
	return t.NotBefore.Sub(now)
}
