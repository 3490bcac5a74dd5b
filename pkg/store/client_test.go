package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/shardq/pkg/config"
)

func TestOptionsMapsTimeouts(t *testing.T) {
	opts := Options(&config.QueueConfig{
		Scheme:               config.SchemeRedis,
		Addr:                 "localhost:6379",
		DB:                   3,
		SocketTimeout:        5 * time.Second,
		SocketConnectTimeout: 2 * time.Second,
	})

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 5*time.Second, opts.ReadTimeout)
	assert.Equal(t, 5*time.Second, opts.WriteTimeout)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Nil(t, opts.TLSConfig)
}

func TestOptionsRetryOnTimeout(t *testing.T) {
	opts := Options(&config.QueueConfig{Scheme: config.SchemeRedis})
	assert.Equal(t, -1, opts.MaxRetries, "retries disabled by default")

	opts = Options(&config.QueueConfig{Scheme: config.SchemeRedis, RetryOnTimeout: true})
	assert.Equal(t, 3, opts.MaxRetries)
}

func TestOptionsTLSForRediss(t *testing.T) {
	opts := Options(&config.QueueConfig{Scheme: config.SchemeRediss, Addr: "localhost:6379"})
	assert.NotNil(t, opts.TLSConfig)
}
