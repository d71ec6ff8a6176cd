// Package models defines the serialized and exchanged data of the ECA engine:
// raw process graphs, plugin references, deferred tasks and execution reports.
package models

import "fmt"

// PluginKind distinguishes the four node kinds of a process model.
type PluginKind string

const (
	PluginKindEvent     PluginKind = "event"
	PluginKindCondition PluginKind = "condition"
	PluginKindGateway   PluginKind = "gateway"
	PluginKindAction    PluginKind = "action"
)

// PluginKinds lists every kind in a stable order.
var PluginKinds = []PluginKind{
	PluginKindEvent,
	PluginKindCondition,
	PluginKindGateway,
	PluginKindAction,
}

// Valid reports whether k is one of the known kinds.
func (k PluginKind) Valid() bool {
	switch k {
	case PluginKindEvent, PluginKindCondition, PluginKindGateway, PluginKindAction:
		return true
	default:
		return false
	}
}

// PluginRef points a node at a plugin implementation and carries its configuration.
// It is immutable once the owning model is compiled.
type PluginRef struct {
	Kind     PluginKind        `json:"kind"`
	PluginID string            `json:"plugin_id"`
	Config   map[string]string `json:"config,omitempty"`
}

func (p PluginRef) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.PluginID)
}

// ConfigValue returns the configured value for key, or def when it is missing or empty.
func (p PluginRef) ConfigValue(key, def string) string {
	if v, ok := p.Config[key]; ok && v != "" {
		return v
	}

	return def
}

// WildcardIndexEntry is produced once per Event node at compile time.
type WildcardIndexEntry struct {
	EventName   string `json:"event_name"`
	ModelID     string `json:"model_id"`
	EventNodeID string `json:"event_node_id"`
	Wildcard    string `json:"wildcard"`
}
