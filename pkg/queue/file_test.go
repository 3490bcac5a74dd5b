package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tests.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileOrder(t *testing.T) {
	ctx := context.Background()
	path := writeTestList(t, strings.Join(testList, "\n")+"\n")

	q, err := NewFile(path, 1, 0.1)
	require.NoError(t, err)

	length, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(testList), length)

	var order []string
	for test := range q.Iter(ctx) {
		order = append(order, test)
		_, err := q.Acknowledge(ctx, test)
		require.NoError(t, err)
	}
	assert.Equal(t, testList, order)
}

func TestFileEmpty(t *testing.T) {
	path := writeTestList(t, "")

	q, err := NewFile(path, 0, 0)
	require.NoError(t, err)

	length, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestFileMissing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "absent.txt"), 0, 0)
	assert.Error(t, err)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\r\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
}
