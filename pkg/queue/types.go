// Package queue implements the distributed test-queue protocol: a fixed set
// of test identifiers is sharded across worker processes through a
// Redis-compatible coordination store, with atomic server-side scripts
// guarding every state transition.
package queue

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

// DefaultRequeueOffset is how far from the consumption point a requeued test
// is reinserted, letting a handful of other tests run before the retry.
const DefaultRequeueOffset = 42

// Master status values stored under build:<id>:master-status.
const (
	masterStatusSetup    = "setup"
	masterStatusReady    = "ready"
	masterStatusFinished = "finished"
)

const (
	// masterPollInterval paces master-status and drain polling.
	masterPollInterval = 100 * time.Millisecond

	// idlePollInterval paces reservation attempts while the queue is busy
	// but nothing is reservable.
	idlePollInterval = 50 * time.Millisecond

	// defaultMasterWait is how long a worker waits for the master to seed
	// the queue before giving up on the build.
	defaultMasterWait = 10 * time.Second
)

// ErrLostMaster indicates the master worker never reported the queue ready.
var ErrLostMaster = errors.New("master worker lost")

// LostMasterError carries the last observed master status after a
// WaitForMaster timeout.
type LostMasterError struct {
	Status string        // Last observed master-status value ("" if never set)
	Waited time.Duration // How long the caller waited
}

// Error returns formatted error message
func (e *LostMasterError) Error() string {
	return fmt.Sprintf("the master worker is still %q after %s waiting", e.Status, e.Waited)
}

// Unwrap returns ErrLostMaster so callers can match with errors.Is
func (e *LostMasterError) Unwrap() error {
	return ErrLostMaster
}

// Queue is the capability set shared by every queue variant.
type Queue interface {
	// Len returns the number of tests still to work off: queued plus
	// reserved tests for the distributed roles, tests not yet handed out
	// for the in-memory queues.
	Len(ctx context.Context) (int, error)

	// Progress returns how many tests have been worked off.
	Progress(ctx context.Context) (int, error)

	// Total returns the size of the initial test set.
	Total(ctx context.Context) (int, error)

	// Distributed reports whether the queue coordinates through a shared
	// store. Collaborators use it to decide whether to install the
	// error-report writer.
	Distributed() bool
}

// Consumer is a Queue that hands out tests to run.
type Consumer interface {
	Queue

	// Iter returns the lazy sequence of tests this consumer should run.
	Iter(ctx context.Context) iter.Seq[string]

	// Acknowledge marks a test done. False means another worker reclaimed
	// the reservation first (late acknowledge).
	Acknowledge(ctx context.Context, test string) (bool, error)

	// Requeue sends a failed test back into the queue, subject to the
	// per-test and global caps. False means the requeue was refused.
	Requeue(ctx context.Context, test string) (bool, error)
}
