package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "build:42", buildKey("42"))
	assert.Equal(t, "build:42:queue", buildKey("42", "queue"))
	assert.Equal(t, "build:42:worker:1:queue", buildKey("42", "worker", "1", "queue"))
	assert.Equal(t, "build:42:error-reports", buildKey("42", "error-reports"))
}
