package queue

import (
	"context"
	"iter"
	"math"
	"slices"
)

// Static is the in-memory reference implementation of the queue contract,
// used when no coordination is needed. Iteration pops from the head;
// requeued tests are reinserted at the head.
type Static struct {
	tests    []string
	total    int
	progress int

	maxRequeues       int
	globalMaxRequeues int
	requeues          map[string]int
}

// NewStatic builds an in-memory queue over tests. The global requeue cap is
// ceil(len(tests) * requeueTolerance).
func NewStatic(tests []string, maxRequeues int, requeueTolerance float64) *Static {
	return &Static{
		tests:             slices.Clone(tests),
		total:             len(tests),
		maxRequeues:       maxRequeues,
		globalMaxRequeues: int(math.Ceil(requeueTolerance * float64(len(tests)))),
		requeues:          make(map[string]int),
	}
}

// Len returns the number of tests still queued.
func (q *Static) Len(_ context.Context) (int, error) {
	return len(q.tests), nil
}

// Progress returns how many handed-out tests the caller has finished with:
// a test counts once the loop body it was yielded to returns.
func (q *Static) Progress(_ context.Context) (int, error) {
	return q.progress, nil
}

// Total returns the size of the initial test set.
func (q *Static) Total(_ context.Context) (int, error) {
	return q.total, nil
}

// Distributed reports that this queue lives in process memory.
func (q *Static) Distributed() bool {
	return false
}

// Iter returns the lazy sequence of queued tests.
func (q *Static) Iter(_ context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(q.tests) > 0 {
			test := q.tests[0]
			q.tests = q.tests[1:]
			if !yield(test) {
				return
			}
			q.progress++
		}
	}
}

// Acknowledge is a no-op that always reports success; no other worker can
// hold a reservation on an in-memory queue.
func (q *Static) Acknowledge(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// Requeue reinserts a failed test at the head, subject to the per-test and
// global caps.
func (q *Static) Requeue(_ context.Context, test string) (bool, error) {
	if q.requeues[test] >= q.maxRequeues {
		return false, nil
	}

	global := 0
	for _, count := range q.requeues {
		global += count
	}
	if global >= q.globalMaxRequeues {
		return false, nil
	}

	q.requeues[test]++
	q.tests = slices.Insert(q.tests, 0, test)
	return true, nil
}
