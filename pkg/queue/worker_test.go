package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequeueShortCircuitsWhenDisabled(t *testing.T) {
	ctx := context.Background()

	// No per-test budget: the script must not even be attempted, so no
	// store client is needed.
	w := &Worker{maxRequeues: 0, globalMaxRequeues: 1}
	requeued, err := w.Requeue(ctx, "ATest#test_foo")
	require.NoError(t, err)
	assert.False(t, requeued)

	// No global budget either.
	w = &Worker{maxRequeues: 1, globalMaxRequeues: 0}
	requeued, err = w.Requeue(ctx, "ATest#test_foo")
	require.NoError(t, err)
	assert.False(t, requeued)
}

func TestLostMasterError(t *testing.T) {
	err := &LostMasterError{Status: "setup", Waited: 10 * time.Second}

	assert.ErrorIs(t, err, ErrLostMaster)
	assert.Contains(t, err.Error(), `"setup"`)
	assert.Contains(t, err.Error(), "10s")

	var lost *LostMasterError
	require.True(t, errors.As(err, &lost))
	assert.Equal(t, "setup", lost.Status)
}

func TestShutdownIsIdempotent(t *testing.T) {
	w := &Worker{stopCh: make(chan struct{})}

	assert.False(t, w.shutdownRequested())
	w.Shutdown()
	w.Shutdown()
	assert.True(t, w.shutdownRequested())
}

func TestEpochSeconds(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 500_000_000, time.UTC)
	assert.InDelta(t, float64(at.Unix())+0.5, epochSeconds(at), 1e-6)
}
