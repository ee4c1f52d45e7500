package matrix

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"esgrec/internal/cache"
	"esgrec/internal/core"
)

// SourceOptions parameterize the cached source decorators. The cache is an
// explicit object owned by the composition root, not something implied by a
// framework: TTL, size and retry policy are all stated here.
type SourceOptions struct {
	TTL        time.Duration
	MaxEntries int
	Retries    int
	RetryDelay time.Duration
}

func (o SourceOptions) withDefaults() SourceOptions {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 256
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// CachedAccounts decorates an AccountSource with an LRU+TTL cache and a
// bounded retry policy.
type CachedAccounts struct {
	src   AccountSource
	cache *cache.LRUCache[[]core.Account]
	opts  SourceOptions
}

func NewCachedAccounts(src AccountSource, opts SourceOptions) *CachedAccounts {
	opts = opts.withDefaults()
	return &CachedAccounts{
		src:   src,
		cache: cache.NewLRUCache[[]core.Account](opts.MaxEntries, opts.TTL),
		opts:  opts,
	}
}

func (c *CachedAccounts) ListAccounts(ctx context.Context, companyID int64) ([]core.Account, error) {
	key := strconv.FormatInt(companyID, 10)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := fetchWithRetry(ctx, c.opts, func() ([]core.Account, error) {
		return c.src.ListAccounts(ctx, companyID)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// Invalidate drops the cached dimension list for a company.
func (c *CachedAccounts) Invalidate(companyID int64) {
	c.cache.Delete(strconv.FormatInt(companyID, 10))
}

// CleanExpired drops expired entries and reports how many were removed.
func (c *CachedAccounts) CleanExpired() int {
	return c.cache.CleanExpired()
}

// CachedMatrix decorates a MatrixSource with an LRU+TTL cache and a bounded
// retry policy, keyed by (company, year).
type CachedMatrix struct {
	src   MatrixSource
	cache *cache.LRUCache[core.RecordMatrixResponse]
	opts  SourceOptions
}

func NewCachedMatrix(src MatrixSource, opts SourceOptions) *CachedMatrix {
	opts = opts.withDefaults()
	return &CachedMatrix{
		src:   src,
		cache: cache.NewLRUCache[core.RecordMatrixResponse](opts.MaxEntries, opts.TTL),
		opts:  opts,
	}
}

func (c *CachedMatrix) FetchMatrix(ctx context.Context, companyID int64, year int) (core.RecordMatrixResponse, error) {
	key := matrixKey(companyID, year)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := fetchWithRetry(ctx, c.opts, func() (core.RecordMatrixResponse, error) {
		return c.src.FetchMatrix(ctx, companyID, year)
	})
	if err != nil {
		return core.RecordMatrixResponse{}, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// Invalidate drops the cached matrix for one (company, year), forcing the
// next load to hit the source. Called after every successful save.
func (c *CachedMatrix) Invalidate(companyID int64, year int) {
	c.cache.Delete(matrixKey(companyID, year))
}

// CleanExpired drops expired entries and reports how many were removed.
func (c *CachedMatrix) CleanExpired() int {
	return c.cache.CleanExpired()
}

func matrixKey(companyID int64, year int) string {
	return fmt.Sprintf("%d/%d", companyID, year)
}

func fetchWithRetry[T any](ctx context.Context, opts SourceOptions, fetch func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}
		v, err := fetch()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
