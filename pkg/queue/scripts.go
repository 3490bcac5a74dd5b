package queue

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// The four atomic scripts implementing the critical section.
const (
	scriptReserve     = "reserve"
	scriptReserveLost = "reserve_lost"
	scriptAcknowledge = "acknowledge"
	scriptRequeue     = "requeue"
)

//go:embed redis/*.lua
var scriptsFS embed.FS

// script returns the compiled script for name, loading it from the embedded
// script files on first use. Script.Run re-registers on the server when the
// script cache was flushed.
func (b *base) script(name string) (*redis.Script, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if script, ok := b.scripts[name]; ok {
		return script, nil
	}

	src, err := scriptsFS.ReadFile("redis/" + name + ".lua")
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}

	script := redis.NewScript(string(src))
	b.scripts[name] = script
	return script, nil
}

// evalScript runs a named script atomically on the store. A nil Lua return
// is mapped to (nil, nil).
func (b *base) evalScript(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	script, err := b.script(name)
	if err != nil {
		return nil, err
	}

	res, err := script.Run(ctx, b.client, keys, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("script %s failed: %w", name, err)
	}
	return res, nil
}
