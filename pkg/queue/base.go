package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// base carries the state common to the distributed roles: the store handle,
// the build namespace, the cached master flag, the size of the test list
// the role was constructed with, and the lazy script cache. All queue state
// beyond these lives in the store and is re-queried on every operation.
type base struct {
	client  *redis.Client
	buildID string

	isMaster bool
	total    int

	mu      sync.Mutex
	scripts map[string]*redis.Script
}

func newBase(client *redis.Client, buildID string) base {
	return base{
		client:  client,
		buildID: buildID,
		scripts: make(map[string]*redis.Script),
	}
}

// Key derives a store key under this build's namespace.
func (b *base) Key(parts ...string) string {
	return buildKey(b.buildID, parts...)
}

// ErrorReportsKey is the mapping from test id to opaque report bytes,
// written by the external reporter. The queue never touches it.
func (b *base) ErrorReportsKey() string {
	return b.Key("error-reports")
}

// BuildID returns the build this queue belongs to.
func (b *base) BuildID() string {
	return b.buildID
}

// IsMaster reports whether this role won the master election.
func (b *base) IsMaster() bool {
	return b.isMaster
}

// Distributed reports that this queue coordinates through the store.
func (b *base) Distributed() bool {
	return true
}

// Len returns |queue| + |running| in a single pipelined round-trip.
func (b *base) Len(ctx context.Context) (int, error) {
	pipe := b.client.TxPipeline()
	queued := pipe.LLen(ctx, b.Key("queue"))
	running := pipe.ZCard(ctx, b.Key("running"))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to query queue length: %w", err)
	}
	return int(queued.Val() + running.Val()), nil
}

// Total returns the size of the initial test set: the length of the test
// list this role was constructed with, or, when it has none (the
// supervisor), the total the master wrote to the store.
func (b *base) Total(ctx context.Context) (int, error) {
	if b.total > 0 {
		return b.total, nil
	}
	total, err := b.client.Get(ctx, b.Key("total")).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query build total: %w", err)
	}
	return total, nil
}

// Progress returns total − length.
func (b *base) Progress(ctx context.Context) (int, error) {
	total, err := b.Total(ctx)
	if err != nil {
		return 0, err
	}
	length, err := b.Len(ctx)
	if err != nil {
		return 0, err
	}
	return total - length, nil
}

// Workers returns the ids of all registered workers.
func (b *base) Workers(ctx context.Context) ([]string, error) {
	workers, err := b.client.SMembers(ctx, b.Key("workers")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query registered workers: %w", err)
	}
	return workers, nil
}

// WaitForMaster blocks until the master reports the queue seeded, polling
// master-status every 100ms for up to timeout. It returns a LostMasterError
// when the status never reaches ready or finished.
func (b *base) WaitForMaster(ctx context.Context, timeout time.Duration) error {
	if b.isMaster {
		return nil
	}

	var status string
	iterations := int(timeout/masterPollInterval) + 1
	for i := 0; i < iterations; i++ {
		var err error
		status, err = b.masterStatus(ctx)
		if err != nil {
			return err
		}
		if status == masterStatusReady || status == masterStatusFinished {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(masterPollInterval):
		}
	}

	return &LostMasterError{Status: status, Waited: timeout}
}

func (b *base) masterStatus(ctx context.Context) (string, error) {
	status, err := b.client.Get(ctx, b.Key("master-status")).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query master status: %w", err)
	}
	return status, nil
}
