package models

// RawModel is the serialized form of a process model as produced by a modeller or read
// from configuration. It is the compiler's input and is never executed directly.
type RawModel struct {
	ID          string    `json:"id"                     validate:"required"      yaml:"id"`
	Label       string    `json:"label"                  yaml:"label"`
	Version     string    `json:"version"                yaml:"version"`
	Enabled     bool      `json:"enabled"                yaml:"enabled"`
	Weight      int       `json:"weight"                 yaml:"weight"`
	Nodes       []RawNode `json:"nodes"                  validate:"required,min=1,dive" yaml:"nodes"`
	EntryPoints []string  `json:"entry_points,omitempty" yaml:"entry_points,omitempty"`
}

// RawNode is one node of a raw model.
type RawNode struct {
	ID         string            `json:"id"                   validate:"required"                                   yaml:"id"`
	Label      string            `json:"label"                yaml:"label"`
	Kind       PluginKind        `json:"kind"                 validate:"required,oneof=event condition gateway action" yaml:"kind"`
	Plugin     string            `json:"plugin"               validate:"required"                                   yaml:"plugin"`
	Config     map[string]string `json:"config,omitempty"     yaml:"config,omitempty"`
	Successors []RawSuccessor    `json:"successors,omitempty" validate:"dive"                                       yaml:"successors,omitempty"`
}

// RawSuccessor is a directed edge from the owning node to Target, optionally guarded by the
// Condition node with id Condition.
type RawSuccessor struct {
	Target    string `json:"target"              validate:"required" yaml:"target"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Negate    bool   `json:"negate,omitempty"    yaml:"negate,omitempty"`
}

// Ref returns the plugin reference described by the node.
func (n RawNode) Ref() PluginRef {
	config := make(map[string]string, len(n.Config))
	for k, v := range n.Config {
		config[k] = v
	}

	return PluginRef{
		Kind:     n.Kind,
		PluginID: n.Plugin,
		Config:   config,
	}
}
