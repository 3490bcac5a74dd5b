package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/shardq/pkg/config"
	"github.com/codeready-toolchain/shardq/pkg/store"
)

// Build maps a parsed queue configuration to the right queue variant.
//
// A nil tests slice selects the supervisor role for distributed schemes.
// With cfg.Retry set and tests supplied, the returned queue is the worker's
// retry queue.
func Build(ctx context.Context, cfg *config.QueueConfig, tests []string) (Queue, error) {
	switch cfg.Scheme {
	case config.SchemeList:
		return NewStatic(strings.Split(cfg.Path, ":"), cfg.MaxRequeues, cfg.RequeueTolerance), nil

	case config.SchemeFile:
		q, err := NewFile(cfg.Path, cfg.MaxRequeues, cfg.RequeueTolerance)
		if err != nil {
			return nil, err
		}
		return q, nil

	case config.SchemeRedis, config.SchemeRediss:
		client, err := store.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if tests == nil {
			return NewSupervisor(client, cfg), nil
		}
		worker, err := NewWorker(ctx, client, cfg, tests)
		if err != nil {
			return nil, err
		}
		if cfg.Retry {
			return worker.RetryQueue(ctx)
		}
		return worker, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownScheme, cfg.Scheme)
	}
}
