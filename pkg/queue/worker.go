package queue

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/shardq/pkg/config"
)

// Worker reserves tests from the shared queue, one at a time. The first
// worker to construct for a build wins the master election and seeds the
// queue; the others block on WaitForMaster before consuming.
type Worker struct {
	base

	workerID          string
	timeout           time.Duration
	maxRequeues       int
	globalMaxRequeues int
	masterWait        time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWorker constructs a worker for cfg.BuildID and runs the master
// election. The elected master seeds the queue with tests in one
// transaction; a seeding failure on the master is fatal because the build
// cannot start without it. Non-master registration failures are swallowed;
// the worker re-attempts the store on its next operation.
func NewWorker(ctx context.Context, client *redis.Client, cfg *config.QueueConfig, tests []string) (*Worker, error) {
	if cfg.WorkerID == "" {
		return nil, fmt.Errorf("%w: missing `worker` parameter", config.ErrInvalidQueueURL)
	}

	w := &Worker{
		base:              newBase(client, cfg.BuildID),
		workerID:          cfg.WorkerID,
		timeout:           cfg.Timeout,
		maxRequeues:       cfg.MaxRequeues,
		globalMaxRequeues: int(math.Ceil(float64(len(tests)) * cfg.RequeueTolerance)),
		masterWait:        defaultMasterWait,
		stopCh:            make(chan struct{}),
	}
	w.total = len(tests)

	if err := w.seed(ctx, tests); err != nil {
		return nil, err
	}
	return w, nil
}

// WorkerID returns this worker's identifier.
func (w *Worker) WorkerID() string {
	return w.workerID
}

// seed runs the master election, pushes the test list if elected, and
// registers this worker id.
func (w *Worker) seed(ctx context.Context, tests []string) error {
	err := func() error {
		isMaster, err := w.client.SetNX(ctx, w.Key("master-status"), masterStatusSetup, 0).Result()
		if err != nil {
			return err
		}
		w.isMaster = isMaster

		if w.isMaster {
			pipe := w.client.TxPipeline()
			if len(tests) > 0 {
				// LPUSH in original order so tail-pops hand tests out in
				// original order.
				values := make([]any, len(tests))
				for i, test := range tests {
					values[i] = test
				}
				pipe.LPush(ctx, w.Key("queue"), values...)
			}
			pipe.Set(ctx, w.Key("total"), w.total, 0)
			pipe.Set(ctx, w.Key("master-status"), masterStatusReady, 0)
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}

		return w.client.SAdd(ctx, w.Key("workers"), w.workerID).Err()
	}()
	if err != nil {
		if w.isMaster {
			return fmt.Errorf("failed to seed build %s: %w", w.buildID, err)
		}
		slog.Warn("Worker registration failed, continuing unregistered",
			"build_id", w.buildID,
			"worker_id", w.workerID,
			"error", err)
	}
	return nil
}

// Iter returns the lazy sequence of tests reserved for this worker. It
// waits for the master to seed the queue, then alternates between
// reclaiming lost reservations and claiming fresh tests until the queue
// drains, Shutdown is called, or the store connection drops. A dropped
// connection ends the sequence silently; the supervisor surfaces
// incomplete builds.
func (w *Worker) Iter(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		log := slog.With("build_id", w.buildID, "worker_id", w.workerID)

		if err := w.WaitForMaster(ctx, w.masterWait); err != nil {
			log.Warn("Giving up on the queue", "error", err)
			return
		}

		for {
			if w.shutdownRequested() || ctx.Err() != nil {
				return
			}

			test, err := w.reserve(ctx)
			if err != nil {
				log.Warn("Queue iteration interrupted", "error", err)
				return
			}
			if test != "" {
				if !yield(test) {
					return
				}
				continue
			}

			drained, err := w.drained(ctx)
			if err != nil {
				log.Warn("Queue iteration interrupted", "error", err)
				return
			}
			if drained {
				return
			}
			w.sleep(ctx, idlePollInterval)
		}
	}
}

// Shutdown stops the iteration at the top of its next loop. Safe to call
// from inside the loop body and more than once.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Acknowledge marks a test done. False means another worker reclaimed the
// reservation and acknowledged it first; callers record the result only if
// the test passed.
func (w *Worker) Acknowledge(ctx context.Context, test string) (bool, error) {
	res, err := w.evalScript(ctx, scriptAcknowledge,
		[]string{w.Key("running"), w.Key("processed")},
		test,
	)
	if err != nil {
		return false, err
	}
	removed, _ := res.(int64)
	return removed == 1, nil
}

// Requeue sends a failed test back into the queue at the default offset.
func (w *Worker) Requeue(ctx context.Context, test string) (bool, error) {
	return w.RequeueWithOffset(ctx, test, DefaultRequeueOffset)
}

// RequeueWithOffset reinserts test `offset` slots from the consumption
// point. False means a cap refused the requeue; the caller decides whether
// that marks the test skipped or failed.
func (w *Worker) RequeueWithOffset(ctx context.Context, test string, offset int) (bool, error) {
	if w.maxRequeues <= 0 || w.globalMaxRequeues <= 0 {
		return false, nil
	}

	res, err := w.evalScript(ctx, scriptRequeue,
		[]string{
			w.Key("processed"),
			w.Key("requeues-count"),
			w.Key("queue"),
			w.Key("running"),
		},
		w.maxRequeues, w.globalMaxRequeues, test, offset,
	)
	if err != nil {
		return false, err
	}
	requeued, _ := res.(int64)
	return requeued == 1, nil
}

// RetryQueue materialises this worker's private reservation log as a
// restartable in-memory queue, oldest reservation first. The build id is
// retained so the reporter can address the same error-report namespace.
func (w *Worker) RetryQueue(ctx context.Context) (*Retry, error) {
	tests, err := w.client.LRange(ctx, w.Key("worker", w.workerID, "queue"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read worker queue: %w", err)
	}
	slices.Reverse(tests)
	return NewRetry(tests, w.client, w.buildID), nil
}

// reserve tries to reclaim a lost reservation, then to claim a fresh test.
// An empty string means nothing is reservable right now.
func (w *Worker) reserve(ctx context.Context) (string, error) {
	if w.timeout > 0 {
		test, err := w.reserveLost(ctx)
		if test != "" || err != nil {
			return test, err
		}
	}
	return w.reserveFresh(ctx)
}

func (w *Worker) reserveFresh(ctx context.Context) (string, error) {
	res, err := w.evalScript(ctx, scriptReserve,
		[]string{
			w.Key("queue"),
			w.Key("running"),
			w.Key("processed"),
			w.Key("worker", w.workerID, "queue"),
		},
		epochSeconds(time.Now()),
	)
	if err != nil || res == nil {
		return "", err
	}
	test, _ := res.(string)
	return test, nil
}

func (w *Worker) reserveLost(ctx context.Context) (string, error) {
	res, err := w.evalScript(ctx, scriptReserveLost,
		[]string{
			w.Key("running"),
			w.Key("completed"),
			w.Key("worker", w.workerID, "queue"),
		},
		epochSeconds(time.Now()), w.timeout.Seconds(),
	)
	if err != nil || res == nil {
		return "", err
	}
	test, _ := res.(string)
	return test, nil
}

// drained reports whether iteration should stop: the queue list is empty
// and, when reclamation is enabled, no reservation is left to reclaim.
func (w *Worker) drained(ctx context.Context) (bool, error) {
	pipe := w.client.TxPipeline()
	queued := pipe.LLen(ctx, w.Key("queue"))
	running := pipe.ZCard(ctx, w.Key("running"))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to query queue length: %w", err)
	}

	if queued.Val() > 0 {
		return false, nil
	}
	if w.timeout <= 0 {
		return true, nil
	}
	return running.Val() == 0, nil
}

func (w *Worker) shutdownRequested() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// sleep waits for the given duration or until shutdown or ctx cancellation.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-w.stopCh:
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// epochSeconds is the reservation score: Unix seconds with sub-second
// resolution, matching the staleness threshold's granularity.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

var _ Consumer = (*Worker)(nil)
