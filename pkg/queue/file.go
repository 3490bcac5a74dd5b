package queue

import (
	"fmt"
	"os"
	"strings"
)

// NewFile builds a Static queue from a newline-delimited test list file.
func NewFile(path string, maxRequeues int, requeueTolerance float64) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test list %s: %w", path, err)
	}
	return NewStatic(splitLines(string(data)), maxRequeues, requeueTolerance), nil
}

// splitLines splits on newlines, tolerating a trailing newline and CRLF
// endings. An empty file yields no tests.
func splitLines(data string) []string {
	data = strings.TrimRight(data, "\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
