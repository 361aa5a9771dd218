// Package ratelimit implements fixed clock-hour buckets over a shared counter store.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/fleetverify-backend/pkg/logger"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a settable clock for tests and replays.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// CounterStore increments are atomically additive; Get returns 0 for unknown keys.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

type Decision struct {
	Allowed bool
	Count   int64
	Limit   int
	ResetAt time.Time
}

// HourlyLimiter admits at most Limit hits per subject per clock hour.
type HourlyLimiter struct {
	store  CounterStore
	clock  Clock
	prefix string
	limit  int
}

func NewHourlyLimiter(store CounterStore, clock Clock, prefix string, limit int) *HourlyLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &HourlyLimiter{store: store, clock: clock, prefix: prefix, limit: limit}
}

// Key is <prefix>:<subject>:<YYYYMMDDHH> in UTC.
func (l *HourlyLimiter) Key(subject string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, subject, l.clock.Now().UTC().Format("2006010215"))
}

// Hit counts the request before deciding, so denied requests count too.
func (l *HourlyLimiter) Hit(ctx context.Context, subject string) (Decision, error) {
	now := l.clock.Now().UTC()
	key := l.Key(subject)
	reset := now.Truncate(time.Hour).Add(time.Hour)

	count, err := l.store.Incr(ctx, key, time.Hour)
	if err != nil {
		logger.Error("Failed to increment rate limit counter", err, map[string]interface{}{
			"key": key,
		})
		return Decision{Limit: l.limit, ResetAt: reset}, err
	}

	decision := Decision{
		Allowed: count <= int64(l.limit),
		Count:   count,
		Limit:   l.limit,
		ResetAt: reset,
	}
	if !decision.Allowed {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"key":   key,
			"count": count,
			"limit": l.limit,
		})
	}
	return decision, nil
}

// Count reads the current bucket without incrementing it.
func (l *HourlyLimiter) Count(ctx context.Context, subject string) (int64, error) {
	return l.store.Get(ctx, l.Key(subject))
}

type memoryEntry struct {
	value     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore used by tests and single-node setups.
type MemoryStore struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]memoryEntry
}

func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{clock: clock, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{expiresAt: now.Add(ttl)}
	}
	entry.value++
	s.entries[key] = entry
	return entry.value, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		return 0, nil
	}
	return entry.value, nil
}
