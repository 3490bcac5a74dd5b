package queue

import "github.com/redis/go-redis/v9"

// Retry replays a worker's private reservation log as an in-memory queue.
// It keeps the store handle and build id only so the external reporter can
// address the build's error-report namespace.
type Retry struct {
	*Static

	client  *redis.Client
	buildID string
}

// NewRetry wraps tests (oldest reservation first) in a restartable queue
// bound to buildID's namespace.
func NewRetry(tests []string, client *redis.Client, buildID string) *Retry {
	return &Retry{
		Static:  NewStatic(tests, 0, 0),
		client:  client,
		buildID: buildID,
	}
}

// Distributed reports true: retry runs still consult the shared
// error-report store.
func (r *Retry) Distributed() bool {
	return true
}

// BuildID returns the build this retry queue belongs to.
func (r *Retry) BuildID() string {
	return r.buildID
}

// Key derives a store key under this build's namespace.
func (r *Retry) Key(parts ...string) string {
	return buildKey(r.buildID, parts...)
}

// ErrorReportsKey is where the external reporter looks up failure payloads.
func (r *Retry) ErrorReportsKey() string {
	return r.Key("error-reports")
}

var _ Consumer = (*Retry)(nil)
