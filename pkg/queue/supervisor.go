package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/shardq/pkg/config"
)

// Supervisor is a non-producing observer of a build: it never seeds and
// never reserves, it only waits for the master and then for the queue to
// drain.
type Supervisor struct {
	base
}

// NewSupervisor constructs a supervisor for cfg.BuildID.
func NewSupervisor(client *redis.Client, cfg *config.QueueConfig) *Supervisor {
	return &Supervisor{base: newBase(client, cfg.BuildID)}
}

// WaitForWorkers blocks until every test has been acknowledged. It first
// waits up to masterTimeout for the master to seed the queue, then polls
// the length every 100ms until it reaches zero.
func (s *Supervisor) WaitForWorkers(ctx context.Context, masterTimeout time.Duration) error {
	if err := s.WaitForMaster(ctx, masterTimeout); err != nil {
		return err
	}

	for {
		length, err := s.Len(ctx)
		if err != nil {
			return err
		}
		if length == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(masterPollInterval):
		}
	}
}

var _ Queue = (*Supervisor)(nil)
