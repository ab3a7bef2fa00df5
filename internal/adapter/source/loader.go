// Package source loads and parses the rainfall dataset.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/cache"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/domain"
	"github.com/couchcryptid/rainfall-heatmap-service/internal/observability"
	"golang.org/x/sync/singleflight"
)

// Loader fetches and parses the dataset on every call.
// It implements pipeline.DatasetLoader.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader around fetcher.
func NewLoader(fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{fetcher: fetcher, logger: logger, metrics: metrics}
}

// Source names the underlying dataset.
func (l *Loader) Source() string { return l.fetcher.Source() }

// LoadDataset retrieves and parses the dataset. Failures wrap
// domain.ErrFetch or domain.ErrParse.
func (l *Loader) LoadDataset(ctx context.Context) (*domain.Dataset, error) {
	start := time.Now()

	data, err := l.fetcher.Fetch(ctx)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, err
	}

	ds, err := domain.ParseCSV(data)
	if err != nil {
		l.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, err
	}

	l.metrics.DatasetLoads.WithLabelValues("success").Inc()
	l.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())
	l.metrics.DatasetRows.Set(float64(len(ds.Rows)))
	l.logger.Debug("dataset loaded",
		"source", l.fetcher.Source(),
		"rows", len(ds.Rows),
		"columns", len(ds.Columns),
		"duration", time.Since(start),
	)
	return ds, nil
}

// datasetLoader is the subset of Loader that CachedLoader decorates.
type datasetLoader interface {
	LoadDataset(ctx context.Context) (*domain.Dataset, error)
	Source() string
}

// CachedLoader keeps parsed datasets for a TTL so repeated generations do not
// re-fetch the file. Concurrent misses share one load.
type CachedLoader struct {
	inner   datasetLoader
	cache   *cache.LRU[*domain.Dataset]
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedLoader wraps inner with an LRU of maxEntries datasets expiring after ttl.
func NewCachedLoader(inner datasetLoader, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   cache.New[*domain.Dataset](maxEntries, ttl, nil),
		metrics: metrics,
	}
}

// newCachedLoaderWithCache is used by tests to inject a cache with a fake clock.
func newCachedLoaderWithCache(inner datasetLoader, c *cache.LRU[*domain.Dataset], metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{inner: inner, cache: c, metrics: metrics}
}

// Source names the underlying dataset.
func (c *CachedLoader) Source() string { return c.inner.Source() }

// LoadDataset returns the cached dataset or loads it. Datasets are shared
// between callers and must not be mutated.
func (c *CachedLoader) LoadDataset(ctx context.Context) (*domain.Dataset, error) {
	key := c.inner.Source()
	if ds, ok := c.cache.Get(key); ok {
		c.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	c.metrics.DatasetCache.WithLabelValues("miss").Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		ds, err := c.inner.LoadDataset(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.cache.Put(key, ds)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Dataset), nil
	}
}
