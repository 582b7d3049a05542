package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/logger"
	"golang.org/x/sync/errgroup"

	"luckyenvelope/internal/metrics"
	"luckyenvelope/internal/models"
	"luckyenvelope/internal/store"
)

// DefaultCacheTTL is how long a prize count snapshot is served before the
// next Get refreshes it.
const DefaultCacheTTL = 15 * time.Second

// PrizeCache holds how many units of each prize kind have been granted.
type PrizeCache struct {
	store   store.Client
	prizes  []models.Prize
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu        sync.Mutex
	counts    map[string]int
	fetchedAt time.Time
}

// NewPrizeCache returns an empty cache; the first Get fetches.
func NewPrizeCache(st store.Client, prizes []models.Prize, ttl time.Duration) *PrizeCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PrizeCache{
		store:  st,
		prizes: prizes,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the granted counts, refreshing them from the store when the
// snapshot is missing or older than the TTL. The returned map is a copy.
func (c *PrizeCache) Get(ctx context.Context) map[string]int {
	c.mu.Lock()
	if c.counts != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		out := maps.Clone(c.counts)
		c.mu.Unlock()
		return out
	}
	c.mu.Unlock()

	counts, err := c.Fetch(ctx)
	if err != nil {
		logger.Warningf("Error counting prizes, assuming none granted: %v", err)
	}

	c.mu.Lock()
	c.counts = counts
	c.fetchedAt = c.now()
	c.mu.Unlock()
	c.metrics.CacheRefreshed()
	return maps.Clone(counts)
}

// Invalidate forces the next Get to refresh.
func (c *PrizeCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Bump records one more granted unit of prizeID locally.
func (c *PrizeCache) Bump(prizeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts != nil {
		c.counts[prizeID]++
	}
}

// Fetch queries the store for every prize kind in parallel without
// touching the snapshot. A kind whose query fails counts as zero granted and
// its error is joined into the returned error.
func (c *PrizeCache) Fetch(ctx context.Context) (map[string]int, error) {
	results := make([]int, len(c.prizes))
	errs := make([]error, len(c.prizes))
	var g errgroup.Group
	for i, p := range c.prizes {
		g.Go(func() error {
			n, err := store.Count(ctx, c.store, store.FieldPrizeID, p.ID)
			if err != nil {
				c.metrics.StoreError("count")
				errs[i] = fmt.Errorf("count %s: %w", p.ID, err)
				return nil
			}
			results[i] = n
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]int, len(c.prizes))
	for i, p := range c.prizes {
		counts[p.ID] = results[i]
	}
	return counts, errors.Join(errs...)
}
