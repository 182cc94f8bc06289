package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/technopark/core"
)

var _ core.Denylist = (*InMemoryDenylist)(nil)

// InMemoryDenylist keeps revoked token hashes until the token would have
// expired on its own.
type InMemoryDenylist struct {
	entries map[string]time.Time // key: token hash, value: natural expiry
	mu      sync.RWMutex
	maxSize int
	now     func() time.Time

	// counters
	revocations int64
	hits        int64
	misses      int64
	expired     int64
	evictions   int64
}

// NewInMemoryDenylist creates a new in-memory denylist
func NewInMemoryDenylist(c core.DenylistConfig) *InMemoryDenylist {
	if c.MaxSize == 0 {
		c.MaxSize = 10000
	}

	return &InMemoryDenylist{
		entries: make(map[string]time.Time),
		maxSize: c.MaxSize,
		now:     time.Now,
	}
}

// Revoke records tokenHash as revoked until the given instant
func (d *InMemoryDenylist) Revoke(tokenHash string, until time.Time) error {
	now := d.now()
	if !until.After(now) {
		// already expired, nothing to deny
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[tokenHash]; !exists && len(d.entries) >= d.maxSize {
		d.pruneLocked(now)
		if len(d.entries) >= d.maxSize {
			d.evictSoonestLocked()
		}
	}

	d.entries[tokenHash] = until
	atomic.AddInt64(&d.revocations, 1)
	return nil
}

// IsRevoked reports whether tokenHash is currently denied
func (d *InMemoryDenylist) IsRevoked(tokenHash string) (bool, error) {
	d.mu.RLock()
	until, exists := d.entries[tokenHash]
	d.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&d.misses, 1)
		return false, nil
	}

	if !d.now().Before(until) {
		// token is past its own expiry, the entry is no longer needed
		d.mu.Lock()
		if cur, ok := d.entries[tokenHash]; ok && cur.Equal(until) {
			delete(d.entries, tokenHash)
			atomic.AddInt64(&d.expired, 1)
		}
		d.mu.Unlock()
		atomic.AddInt64(&d.misses, 1)
		return false, nil
	}

	atomic.AddInt64(&d.hits, 1)
	return true, nil
}

// Prune drops entries whose tokens have expired and returns how many were removed
func (d *InMemoryDenylist) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pruneLocked(d.now())
}

func (d *InMemoryDenylist) pruneLocked(now time.Time) int {
	removed := 0
	for k, until := range d.entries {
		if !now.Before(until) {
			delete(d.entries, k)
			removed++
		}
	}
	atomic.AddInt64(&d.expired, int64(removed))
	return removed
}

// evictSoonestLocked drops the entry closest to its natural expiry.
func (d *InMemoryDenylist) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for k, until := range d.entries {
		if victim == "" || until.Before(soonest) {
			victim, soonest = k, until
		}
	}
	if victim != "" {
		delete(d.entries, victim)
		atomic.AddInt64(&d.evictions, 1)
	}
}

// Len returns the number of tracked revocations
func (d *InMemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Stats returns denylist statistics
func (d *InMemoryDenylist) Stats() core.DenylistStats {
	return core.DenylistStats{
		Revocations: atomic.LoadInt64(&d.revocations),
		Hits:        atomic.LoadInt64(&d.hits),
		Misses:      atomic.LoadInt64(&d.misses),
		Expired:     atomic.LoadInt64(&d.expired),
		Evictions:   atomic.LoadInt64(&d.evictions),
		Size:        d.Len(),
	}
}
