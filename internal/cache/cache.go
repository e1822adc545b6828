// Package cache holds the resolved project list behind a TTL with
// coordinated refresh: when the snapshot expires, exactly one loader
// runs no matter how many callers ask, and late callers share its
// result. Mutations invalidate the snapshot immediately.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/project"
)

// DefaultTTL is how long a successful refresh stays fresh.
const DefaultTTL = 30 * time.Second

// LoadFunc produces a fresh project list, typically registry read plus
// discovery scan.
type LoadFunc func(ctx context.Context) ([]*project.Record, error)

// Cache is the TTL cache over the resolved project list.
type Cache struct {
	ttl     time.Duration
	logger  *logging.Logger
	metrics *Metrics

	group singleflight.Group

	mu        sync.RWMutex
	snapshot  []*project.Record
	loadedAt  time.Time
	populated bool
	gen       uint64
}

// New creates a cache. ttl <= 0 selects DefaultTTL; metrics may be nil.
func New(ttl time.Duration, logger *logging.Logger, metrics *Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		logger:  logger.Named("cache"),
		metrics: metrics,
	}
}

// GetOrRefresh returns the cached snapshot while it is fresh; otherwise
// it refreshes through load. Concurrent callers during a refresh all
// wait for the single in-flight load instead of triggering their own.
// Callers receive a copy of the snapshot slice; records are shared and
// must be treated as read-only.
func (c *Cache) GetOrRefresh(ctx context.Context, load LoadFunc) ([]*project.Record, error) {
	if recs, ok := c.fresh(); ok {
		if c.metrics != nil {
			c.metrics.HitsTotal.Inc()
		}
		return recs, nil
	}
	if c.metrics != nil {
		c.metrics.MissesTotal.Inc()
	}

	v, err, shared := c.group.Do("projects", func() (any, error) {
		// A refresh may have completed between the freshness check and
		// joining the flight.
		if recs, ok := c.fresh(); ok {
			return recs, nil
		}
		return c.refresh(ctx, load)
	})
	if err != nil {
		return nil, err
	}
	recs := v.([]*project.Record)
	if shared {
		c.logger.Debug("joined in-flight refresh")
	}
	return recs, nil
}

// Invalidate drops the snapshot; the next read triggers a fresh load.
// Bumping the generation also voids any refresh already in flight, so
// a load that started before the mutation can never be installed over
// the invalidation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.populated = false
	c.snapshot = nil
	c.mu.Unlock()
	c.logger.Debug("cache invalidated")
}

func (c *Cache) fresh() ([]*project.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.populated || time.Since(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return append([]*project.Record(nil), c.snapshot...), true
}

func (c *Cache) refresh(ctx context.Context, load LoadFunc) ([]*project.Record, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	start := time.Now()
	recs, err := load(ctx)
	if c.metrics != nil {
		c.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RefreshFailures.Inc()
		}
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.snapshot = recs
		c.loadedAt = time.Now()
		c.populated = true
	} else {
		// An Invalidate landed mid-load; this data predates the
		// mutation, so the cache stays empty and the next read rescans.
		c.logger.Debug("refresh superseded by invalidation")
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RefreshesTotal.Inc()
		c.metrics.Projects.Set(float64(len(recs)))
	}
	c.logger.Debug("cache refreshed")
	return append([]*project.Record(nil), recs...), nil
}
