// SPDX-License-Identifier: MPL-2.0

package subnet

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

type (
	// Snapshot holds the query maps of one subnet.
	Snapshot struct {
		Addresses map[UID]string
		Weights   map[UID]Weights
		Keys      map[UID]string

		byKey map[string]UID
	}

	// Cache owns the query snapshots of a fixed set of subnets.
	Cache struct {
		querier Querier
		netuids []int
		clock   Clock

		mu          sync.RWMutex
		snapshots   map[int]*Snapshot
		refreshedAt time.Time
	}

	// CacheOption configures a Cache.
	CacheOption func(*Cache)
)

// WithClock replaces the wall clock.
func WithClock(c Clock) CacheOption {
	return func(cache *Cache) { cache.clock = c }
}

// NewCache returns an empty cache for netuids. Call Refresh to fill it.
func NewCache(q Querier, netuids []int, opts ...CacheOption) *Cache {
	c := &Cache{
		querier:   q,
		netuids:   slices.Clone(netuids),
		clock:     realClock{},
		snapshots: map[int]*Snapshot{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Netuids returns the subnets the cache covers, in configured order.
func (c *Cache) Netuids() []int { return slices.Clone(c.netuids) }

// Refresh queries every subnet and swaps in the new snapshots only when all
// queries succeed.
func (c *Cache) Refresh(ctx context.Context) error {
	next := make(map[int]*Snapshot, len(c.netuids))
	for _, netuid := range c.netuids {
		snap, err := c.query(ctx, netuid)
		if err != nil {
			return fmt.Errorf("refresh subnet %d: %w", netuid, err)
		}
		next[netuid] = snap
	}

	c.mu.Lock()
	c.snapshots = next
	c.refreshedAt = c.clock.Now()
	c.mu.Unlock()
	return nil
}

// RefreshedAt returns the time of the last successful refresh, or the zero
// time.
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// Stale reports whether the cache was never refreshed or is older than
// maxAge.
func (c *Cache) Stale(maxAge time.Duration) bool {
	at := c.RefreshedAt()
	return at.IsZero() || c.clock.Since(at) > maxAge
}

// Snapshot returns the snapshot of netuid.
func (c *Cache) Snapshot(netuid int) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshots[netuid]
	return s, ok
}

// Lookup resolves ss58 to its uid on netuid and returns the weights that
// validator has set.
func (c *Cache) Lookup(netuid int, ss58 string) (UID, Weights, bool) {
	s, ok := c.Snapshot(netuid)
	if !ok {
		return 0, nil, false
	}
	uid, ok := s.byKey[ss58]
	if !ok {
		return 0, nil, false
	}
	return uid, s.Weights[uid], true
}

func (c *Cache) query(ctx context.Context, netuid int) (*Snapshot, error) {
	addrs, err := c.querier.QueryAddresses(ctx, netuid)
	if err != nil {
		return nil, fmt.Errorf("addresses: %w", err)
	}
	weights, err := c.querier.QueryWeights(ctx, netuid)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	keys, err := c.querier.QueryKeys(ctx, netuid)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}

	byKey := make(map[string]UID, len(keys))
	for _, uid := range slices.Sorted(maps.Keys(keys)) {
		if _, dup := byKey[keys[uid]]; !dup {
			byKey[keys[uid]] = uid
		}
	}
	return &Snapshot{Addresses: addrs, Weights: weights, Keys: keys, byKey: byKey}, nil
}
