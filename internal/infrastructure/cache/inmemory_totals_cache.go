package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
)

type totalsKey struct {
	tenantID  finance.TenantID
	companyID finance.CompanyID
}

// entry is a cached value with its expiration
type entry struct {
	totals    finance.AggregateTotals
	expiresAt time.Time
}

// InMemoryTotalsCache implements finance.TotalsCache in process memory.
// It is suitable for single-instance deployments and testing.
type InMemoryTotalsCache struct {
	mu        sync.RWMutex
	entries   map[totalsKey]entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTotalsCache creates an in-memory cache and starts a background
// goroutine that drops expired entries
func NewInMemoryTotalsCache(ttl time.Duration) *InMemoryTotalsCache {
	c := &InMemoryTotalsCache{
		entries:  make(map[totalsKey]entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns cached totals if present and not expired. The returned value
// is a copy; callers may modify it freely.
func (c *InMemoryTotalsCache) Get(_ context.Context, tenantID finance.TenantID, companyID finance.CompanyID) (*finance.AggregateTotals, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[totalsKey{tenantID, companyID}]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	totals := e.totals
	return &totals, true
}

// Set stores a copy of totals
func (c *InMemoryTotalsCache) Set(_ context.Context, totals *finance.AggregateTotals) error {
	if totals == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[totalsKey{totals.TenantID, totals.CompanyID}] = entry{
		totals:    *totals,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops every entry of the tenant
func (c *InMemoryTotalsCache) Invalidate(_ context.Context, tenantID finance.TenantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.tenantID == tenantID {
			delete(c.entries, k)
		}
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryTotalsCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryTotalsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryTotalsCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryTotalsCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

var _ finance.TotalsCache = (*InMemoryTotalsCache)(nil)
