// Package cache keeps computed group balances between expense writes.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splittrack/internal/calculator"
	"github.com/mmynk/splittrack/internal/telemetry"
)

// Loader computes a group's balances from a fresh store snapshot.
type Loader func(ctx context.Context) (calculator.GroupBalances, error)

type entry struct {
	balances  calculator.GroupBalances
	expiresAt time.Time // zero: never
}

// GroupBalances caches calculator results per group ID.
//
// Each group carries a generation number that Invalidate bumps. A load only
// stores its result if the generation is unchanged when it finishes, and
// concurrent misses are collapsed per (group, generation), so a reader that
// starts after an invalidation never receives a result computed before it.
type GroupBalances struct {
	ttl     time.Duration
	metrics *telemetry.Metrics

	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64

	flight singleflight.Group
}

// NewGroupBalances creates an empty cache. ttl <= 0 keeps entries until
// they are invalidated.
func NewGroupBalances(ttl time.Duration, metrics *telemetry.Metrics) *GroupBalances {
	return &GroupBalances{
		ttl:     ttl,
		metrics: metrics,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// Get returns the cached balances for groupID, calling load on a miss.
// The caller owns the returned value. A nil cache always calls load.
func (c *GroupBalances) Get(ctx context.Context, groupID string, load Loader) (calculator.GroupBalances, error) {
	if c == nil {
		return load(ctx)
	}
	c.mu.Lock()
	if e, ok := c.entries[groupID]; ok && (e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)) {
		c.mu.Unlock()
		c.metrics.ObserveCache("hit")
		return e.balances.Clone(), nil
	}
	gen := c.gens[groupID]
	c.mu.Unlock()
	c.metrics.ObserveCache("miss")

	key := groupID + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := c.flight.Do(key, func() (any, error) {
		balances, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(groupID, gen, balances)
		return balances, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(calculator.GroupBalances).Clone(), nil
}

func (c *GroupBalances) store(groupID string, gen uint64, balances calculator.GroupBalances) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[groupID] != gen {
		return
	}
	e := entry{balances: balances}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.entries[groupID] = e
}

// Invalidate drops the entry for groupID and discards any load in flight.
func (c *GroupBalances) Invalidate(groupID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, groupID)
	c.gens[groupID]++
	c.mu.Unlock()
	c.metrics.ObserveCache("invalidate")
}

// Size returns the number of cached groups.
func (c *GroupBalances) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanExpired removes expired entries and returns how many were dropped.
func (c *GroupBalances) CleanExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// RunCleanup calls CleanExpired every interval until ctx is done.
func (c *GroupBalances) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.CleanExpired()
		case <-ctx.Done():
			return
		}
	}
}
