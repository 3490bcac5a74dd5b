package queue

import "strings"

// buildKey derives a key under the per-build namespace:
// build:<build_id>:<part>:<part>…
// Segments are used verbatim; identifiers containing ':' are undefined.
func buildKey(buildID string, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, "build", buildID)
	segments = append(segments, parts...)
	return strings.Join(segments, ":")
}
