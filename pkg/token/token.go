// Package token provides the per-run data store threaded through an execution.
package token

import (
	"maps"
	"slices"
	"strings"
)

// Cloner is implemented by host values that know how to deep copy themselves
// when a context is snapshotted into a task.
type Cloner interface {
	Clone() any
}

// Context is a mutable name to value store owned by exactly one execution run.
// It is not safe for concurrent use.
type Context struct {
	values map[string]any
}

// New creates a context seeded with a shallow copy of seed.
func New(seed map[string]any) *Context {
	values := make(map[string]any, len(seed))
	maps.Copy(values, seed)

	return &Context{values: values}
}

func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]

	return v, ok
}

// GetString returns the value of name when it is a string.
func (c *Context) GetString(name string) (string, bool) {
	v, ok := c.values[name].(string)

	return v, ok
}

func (c *Context) Set(name string, value any) {
	c.values[name] = value
}

func (c *Context) Delete(name string) {
	delete(c.values, name)
}

func (c *Context) Has(name string) bool {
	_, ok := c.values[name]

	return ok
}

func (c *Context) Len() int {
	return len(c.values)
}

// Names returns the token names in lexical order.
func (c *Context) Names() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Data returns a shallow copy of the store, suitable for template rendering.
func (c *Context) Data() map[string]any {
	return maps.Clone(c.values)
}

// Snapshot deep copies the named tokens, or all tokens when no name is given.
// Unknown names are skipped. The result shares no mutable state with the context.
func (c *Context) Snapshot(names ...string) map[string]any {
	if len(names) == 0 {
		names = c.Names()
	}

	snapshot := make(map[string]any, len(names))
	for _, name := range names {
		v, ok := c.values[name]
		if !ok {
			continue
		}

		snapshot[name] = DeepCopy(v)
	}

	return snapshot
}

// DeepCopy copies maps and slices recursively and clones values implementing Cloner.
// Any other value is copied by assignment.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case Cloner:
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = DeepCopy(item)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = DeepCopy(item)
		}

		return out
	case map[string]string:
		return maps.Clone(t)
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// IsEmpty reports whether v is nil, a blank string or an empty collection.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case map[string]string:
		return len(val) == 0
	default:
		return false
	}
}
