package protocol

// Event is the capability behind Event nodes. An Event node listens for the event name
// derived from its configuration and seeds the token context of the runs it starts.
type Event interface {
	Plugin

	// EventName returns the dispatched event name the node reacts to.
	EventName(config map[string]string) string

	// ExtractContextFields exposes name/value pairs of the event instance as tokens.
	ExtractContextFields(instance any) map[string]any
}

// WildcardGenerator is implemented by Event plugins that narrow down, at compile time,
// which event instances a node is interested in.
type WildcardGenerator interface {
	Wildcard(config map[string]string) string
}

// WildcardMatcher decides whether an event instance falls under a precomputed wildcard.
type WildcardMatcher interface {
	AppliesForWildcard(instance any, eventName, wildcard string) bool
}

// WildcardSubject exposes the concrete segments of an event instance, for example
// "key::value". Events that implement it without implementing WildcardMatcher are matched
// segment by segment with MatchWildcard.
type WildcardSubject interface {
	WildcardOf(instance any) (string, bool)
}
