package protocol

import "strings"

const (
	// AnyWildcard matches every event instance.
	AnyWildcard = "*"

	// WildcardSeparator separates the segments of a wildcard.
	WildcardSeparator = "::"
)

// JoinWildcard builds a wildcard from its segments. Empty segments become "*".
func JoinWildcard(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		if s == "" {
			s = AnyWildcard
		}

		parts[i] = s
	}

	return strings.Join(parts, WildcardSeparator)
}

// MatchWildcard reports whether subject falls under pattern. Both are compared segment-wise;
// a "*" segment in the pattern matches any value in that position. The pattern "*" matches
// everything.
func MatchWildcard(pattern, subject string) bool {
	if pattern == "" || pattern == AnyWildcard {
		return true
	}

	patternSegments := strings.Split(pattern, WildcardSeparator)
	subjectSegments := strings.Split(subject, WildcardSeparator)

	if len(patternSegments) != len(subjectSegments) {
		return false
	}

	for i, p := range patternSegments {
		if p != AnyWildcard && p != subjectSegments[i] {
			return false
		}
	}

	return true
}
