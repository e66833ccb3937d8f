package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers event IDs that have already been dispatched.
// FirstSeen returns true exactly once per key within the retention window.
type Deduplicator interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// NoopDeduplicator treats every event as new
type NoopDeduplicator struct{}

func (NoopDeduplicator) FirstSeen(context.Context, string) (bool, error) {
	return true, nil
}

// MemoryDeduplicator keeps keys in process memory
type MemoryDeduplicator struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (d *MemoryDeduplicator) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expires, ok := d.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)

	// opportunistic sweep so the map does not grow without bound
	if len(d.seen) > 1024 {
		for k, exp := range d.seen {
			if !now.Before(exp) {
				delete(d.seen, k)
			}
		}
	}
	return true, nil
}

// RedisDeduplicator shares seen keys across instances with SETNX
type RedisDeduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisDeduplicator(client redis.Cmdable, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{
		client: client,
		ttl:    ttl,
		prefix: "triage:event:",
	}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}
