package workflow

import (
	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
)

// NoGuard marks an unconditional successor.
const NoGuard = -1

// Successor is a compiled edge. Target and Guard are indices into the model's node arena.
type Successor struct {
	Target int
	Guard  int
	Negate bool
}

// Guarded reports whether the edge is traversed only when its guard holds.
func (s Successor) Guarded() bool {
	return s.Guard != NoGuard
}

// Node is a compiled node with its capability resolved.
type Node struct {
	ID         string
	Label      string
	Plugin     models.PluginRef
	Successors []Successor

	event     protocol.Event
	condition protocol.Condition
	action    protocol.Action
}

func (n *Node) Kind() models.PluginKind {
	return n.Plugin.Kind
}

// ProcessModel is an immutable compiled graph. Replacing a model means compiling a new one
// and registering it under the same id.
type ProcessModel struct {
	ID          string
	Label       string
	Version     string
	Enabled     bool
	Weight      int
	Nodes       []Node
	EntryPoints []int
	Wildcards   []models.WildcardIndexEntry

	index map[string]int
	raw   models.RawModel
}

// NodeByID returns the arena index of the node with id.
func (m *ProcessModel) NodeByID(id string) (int, bool) {
	i, ok := m.index[id]

	return i, ok
}

// Raw returns the description the model was compiled from.
func (m *ProcessModel) Raw() models.RawModel {
	return m.raw
}
