// Package util provides test utilities and helper functions for store testing.
package util

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	// Shared connection string for all tests in local dev
	sharedRedisURL string
	containerOnce  sync.Once
	containerErr   error
)

// SetupTestRedis returns a client against a shared Redis server.
// - CI: Connects to the external Redis service from CI_REDIS_URL
// - Local: Uses a shared testcontainer (started once per package)
// Tests isolate through per-build key namespaces, so the server is shared;
// use NewBuildID for a unique namespace per test.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	connStr := getOrCreateSharedRedis(t)

	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

// getOrCreateSharedRedis returns a connection string to the shared server.
// In CI, uses CI_REDIS_URL. In local dev, creates a shared testcontainer once.
func getOrCreateSharedRedis(t *testing.T) string {
	if ciRedisURL := os.Getenv("CI_REDIS_URL"); ciRedisURL != "" {
		t.Log("Using external Redis from CI_REDIS_URL")
		return ciRedisURL
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("Starting shared Redis testcontainer for all tests")

		redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			containerErr = fmt.Errorf("failed to start redis container: %w", err)
			return
		}

		connStr, err := redisContainer.ConnectionString(ctx)
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}

		sharedRedisURL = connStr
		t.Logf("Shared container ready: %s", sharedRedisURL)
	})

	require.NoError(t, containerErr, "Failed to setup shared test container")
	return sharedRedisURL
}

// NewBuildID creates a unique build id so each test gets its own key
// namespace on the shared server.
func NewBuildID(t *testing.T) string {
	t.Helper()

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("failed to generate random bytes for build id: %v", err)
	}
	return fmt.Sprintf("build-%s", hex.EncodeToString(randomBytes))
}
