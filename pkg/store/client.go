// Package store provides the coordination store client.
package store

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/shardq/pkg/config"
)

// NewClient creates a coordination store client from a queue configuration
// and verifies connectivity.
func NewClient(ctx context.Context, cfg *config.QueueConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping coordination store: %w", err)
	}

	return client, nil
}

// Options derives store client options from a queue configuration.
// The rediss scheme enables TLS; socket_timeout and socket_connect_timeout
// map onto the client's round-trip and dial deadlines.
func Options(cfg *config.QueueConfig) *redis.Options {
	opts := &redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	}

	if cfg.SocketTimeout > 0 {
		opts.ReadTimeout = cfg.SocketTimeout
		opts.WriteTimeout = cfg.SocketTimeout
	}
	if cfg.SocketConnectTimeout > 0 {
		opts.DialTimeout = cfg.SocketConnectTimeout
	}

	if cfg.RetryOnTimeout {
		opts.MaxRetries = 3
	} else {
		opts.MaxRetries = -1
	}

	if cfg.Scheme == config.SchemeRediss {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return opts
}
