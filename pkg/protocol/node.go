// Package protocol defines the capability contracts implemented by ECA plugins.
package protocol

// Plugin carries the metadata every capability exposes.
type Plugin interface {
	// ID returns the unique identifier for this plugin within its kind.
	ID() string

	// Name returns the human-readable name for this plugin.
	Name() string

	// Description returns a description of what this plugin does.
	Description() string

	// Schema returns the JSON schema for the plugin configuration, or nil when the
	// plugin accepts any configuration.
	Schema() map[string]any
}

// Gateway nodes carry no behaviour beyond their guarded successors.
type Gateway interface {
	Plugin
}
