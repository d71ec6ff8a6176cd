package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/token"
)

// Env is the engine surface available to conditions and actions during a run.
type Env interface {
	// Logger returns a logger carrying the run attributes.
	Logger() *slog.Logger

	// Now returns the engine clock.
	Now() time.Time

	// EnqueueTask hands a task to the deferred task queue.
	EnqueueTask(ctx context.Context, task models.Task) error

	// Dispatch raises a sub-event on the current call stack. The error is only set when the
	// nested dispatch limit is reached; the sub-event's failures are found in the report.
	Dispatch(ctx context.Context, eventName string, instance any) (*models.ExecutionReport, error)
}

// Action is the capability behind Action nodes. It may mutate tokens, perform host side
// effects or enqueue tasks. Returning a RetryableValidationError aborts the branch with a hint;
// any other error aborts the branch as fatal.
type Action interface {
	Plugin
	Execute(ctx context.Context, env Env, config map[string]string, tokens *token.Context) error
}

// Condition is the capability behind Condition nodes. It must not mutate tokens.
type Condition interface {
	Plugin
	Evaluate(ctx context.Context, env Env, config map[string]string, tokens *token.Context) (bool, error)
}
