package queue

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testList = []string{
	"ATest#test_foo",
	"ATest#test_bar",
	"BTest#test_foo",
	"BTest#test_bar",
}

func newTestStatic() *Static {
	return NewStatic(slices.Clone(testList), 1, 0.1)
}

func TestStaticLen(t *testing.T) {
	q := newTestStatic()

	length, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(testList), length)
}

func TestStaticOrder(t *testing.T) {
	ctx := context.Background()
	q := newTestStatic()

	var order []string
	for test := range q.Iter(ctx) {
		order = append(order, test)
		acked, err := q.Acknowledge(ctx, test)
		require.NoError(t, err)
		assert.True(t, acked)
	}

	assert.Equal(t, testList, order)
}

func TestStaticProgress(t *testing.T) {
	ctx := context.Background()
	q := newTestStatic()

	expected := 0
	for test := range q.Iter(ctx) {
		progress, err := q.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, progress)

		_, err = q.Acknowledge(ctx, test)
		require.NoError(t, err)
		expected++
	}

	progress, err := q.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, progress)
}

func TestStaticRequeue(t *testing.T) {
	ctx := context.Background()
	q := newTestStatic()

	var order []string
	for test := range q.Iter(ctx) {
		order = append(order, test)
		_, err := q.Requeue(ctx, test)
		require.NoError(t, err)
	}

	// The first requeue reinserts at the head and exhausts the global cap
	// (ceil(4 * 0.1) = 1), so the first test runs again immediately.
	expected := append([]string{testList[0]}, testList...)
	assert.Equal(t, expected, order)
}

func TestStaticRequeueRespectsPerTestCap(t *testing.T) {
	ctx := context.Background()
	q := NewStatic(slices.Clone(testList), 1, 1)

	requeued, err := q.Requeue(ctx, testList[0])
	require.NoError(t, err)
	assert.True(t, requeued)

	requeued, err = q.Requeue(ctx, testList[0])
	require.NoError(t, err)
	assert.False(t, requeued, "second requeue of the same test must be refused")

	requeued, err = q.Requeue(ctx, testList[1])
	require.NoError(t, err)
	assert.True(t, requeued, "other tests still have requeue budget")
}

func TestStaticRequeueDisabled(t *testing.T) {
	ctx := context.Background()
	q := NewStatic(slices.Clone(testList), 0, 0)

	requeued, err := q.Requeue(ctx, testList[0])
	require.NoError(t, err)
	assert.False(t, requeued)
}

func TestStaticTotal(t *testing.T) {
	q := newTestStatic()

	total, err := q.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(testList), total)
	assert.False(t, q.Distributed())
}

func TestStaticIterStopsEarly(t *testing.T) {
	ctx := context.Background()
	q := newTestStatic()

	for range q.Iter(ctx) {
		break
	}

	length, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(testList)-1, length)
}
