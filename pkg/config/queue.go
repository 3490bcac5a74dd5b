// Package config holds queue configuration and the queue URL grammar.
package config

import "time"

// Queue URL schemes.
const (
	SchemeList   = "list"
	SchemeFile   = "file"
	SchemeRedis  = "redis"
	SchemeRediss = "rediss"
)

// QueueConfig contains everything needed to construct a queue variant.
// It is the parsed form of a queue URL
// (scheme://authority[:port]/db?query).
type QueueConfig struct {
	// Scheme selects the queue backend: list, file, redis, or rediss.
	Scheme string

	// Addr is the host:port of the coordination store (redis/rediss only).
	Addr string

	// DB is the store database index (redis/rediss only).
	DB int

	// Path carries the backend payload for non-store schemes: the
	// colon-separated test list for `list`, the file path for `file`.
	Path string

	// BuildID identifies the build whose key namespace this queue lives in.
	BuildID string

	// WorkerID identifies this worker. Required for the worker role.
	WorkerID string

	// Timeout is the reservation staleness threshold. Zero disables
	// lost-reservation reclamation.
	Timeout time.Duration

	// MaxRequeues is the per-test requeue cap.
	MaxRequeues int

	// RequeueTolerance is the global requeue cap expressed as a fraction
	// of the test count: global cap = ceil(len(tests) * RequeueTolerance).
	RequeueTolerance float64

	// Retry requests the worker's retry queue instead of a fresh worker.
	Retry bool

	// SocketTimeout bounds store read/write round-trips.
	SocketTimeout time.Duration

	// SocketConnectTimeout bounds store connection establishment.
	SocketConnectTimeout time.Duration

	// RetryOnTimeout enables store client retries on timed-out commands.
	RetryOnTimeout bool
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{}
}

// IsDistributed reports whether the configuration addresses a shared
// coordination store rather than an in-process queue.
func (c *QueueConfig) IsDistributed() bool {
	return c.Scheme == SchemeRedis || c.Scheme == SchemeRediss
}
