package workflow

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
)

// Candidate is one Event node that reacts to a dispatched event.
type Candidate struct {
	Model     *ProcessModel
	EntryNode int
	Entry     models.WildcardIndexEntry
}

type indexEntry struct {
	entry models.WildcardIndexEntry
	model *ProcessModel
	node  int
}

// snapshot is never mutated once published.
type snapshot struct {
	models  map[string]*ProcessModel
	byEvent map[string][]indexEntry
}

// Repository is the Model Registry. Reads go through an atomically swapped snapshot and
// take no lock; writers serialize on a mutex and publish a new snapshot.
type Repository struct {
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

func NewRepository(logger *slog.Logger) *Repository {
	r := &Repository{logger: logger.With("module", "model_registry")}
	r.current.Store(&snapshot{
		models:  map[string]*ProcessModel{},
		byEvent: map[string][]indexEntry{},
	})

	return r
}

// Register adds model, replacing any model with the same id.
func (r *Repository) Register(model *ProcessModel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(r.current.Load().models)
	next[model.ID] = model
	r.current.Store(buildSnapshot(next))

	r.logger.Info("Registered model", "model_id", model.ID, "enabled", model.Enabled, "entry_points", len(model.EntryPoints))
}

// Unregister removes the model with id.
func (r *Repository) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.current.Load().models
	if _, ok := current[id]; !ok {
		return fmt.Errorf("unregister %s: %w", id, ErrModelNotFound)
	}

	next := maps.Clone(current)
	delete(next, id)
	r.current.Store(buildSnapshot(next))

	r.logger.Info("Unregistered model", "model_id", id)

	return nil
}

// Get returns the model registered under id.
func (r *Repository) Get(id string) (*ProcessModel, error) {
	model, ok := r.current.Load().models[id]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", id, ErrModelNotFound)
	}

	return model, nil
}

// Models lists every registered model, disabled ones included, sorted by id.
func (r *Repository) Models() []*ProcessModel {
	snap := r.current.Load()

	return slices.SortedFunc(maps.Values(snap.models), func(a, b *ProcessModel) int {
		return strings.Compare(a.ID, b.ID)
	})
}

func (r *Repository) HealthCheck() (string, bool) {
	snap := r.current.Load()

	return fmt.Sprintf("%d models registered, %d event names indexed", len(snap.models), len(snap.byEvent)), true
}

// CandidatesFor returns the Event nodes reacting to eventName for instance, ordered by model
// weight, then model id, then event node id.
func (r *Repository) CandidatesFor(eventName string, instance any) []Candidate {
	entries := r.current.Load().byEvent[eventName]

	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		node := &e.model.Nodes[e.node]
		applies, err := appliesForWildcard(node.event, instance, eventName, e.entry.Wildcard)
		if err != nil {
			r.logger.Warn("Wildcard match failed, skipping model",
				"model_id", e.model.ID, "event_node_id", node.ID, "event_name", eventName, "error", err)

			continue
		}

		if !applies {
			continue
		}

		candidates = append(candidates, Candidate{Model: e.model, EntryNode: e.node, Entry: e.entry})
	}

	return candidates
}

// appliesForWildcard reports a plugin panic as an error so one faulty matcher only drops its
// own model.
func appliesForWildcard(event protocol.Event, instance any, eventName, wildcard string) (applies bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			applies, err = false, &PanicError{Value: v}
		}
	}()

	if matcher, ok := event.(protocol.WildcardMatcher); ok {
		return matcher.AppliesForWildcard(instance, eventName, wildcard), nil
	}

	if wildcard == protocol.AnyWildcard {
		return true, nil
	}

	if subject, ok := event.(protocol.WildcardSubject); ok {
		if value, ok := subject.WildcardOf(instance); ok {
			return protocol.MatchWildcard(wildcard, value), nil
		}
	}

	return true, nil
}

func buildSnapshot(registered map[string]*ProcessModel) *snapshot {
	byEvent := map[string][]indexEntry{}

	for _, model := range registered {
		if !model.Enabled {
			continue
		}

		for _, w := range model.Wildcards {
			node, ok := model.NodeByID(w.EventNodeID)
			if !ok {
				continue
			}

			byEvent[w.EventName] = append(byEvent[w.EventName], indexEntry{entry: w, model: model, node: node})
		}
	}

	for _, entries := range byEvent {
		slices.SortFunc(entries, func(a, b indexEntry) int {
			return cmp.Or(
				cmp.Compare(a.model.Weight, b.model.Weight),
				strings.Compare(a.model.ID, b.model.ID),
				strings.Compare(a.entry.EventNodeID, b.entry.EventNodeID),
			)
		})
	}

	return &snapshot{models: registered, byEvent: byEvent}
}
