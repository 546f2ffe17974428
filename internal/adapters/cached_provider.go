// Package adapters wraps providers with caching and read timeouts so the
// HTTP handlers can work unchanged over any backend.
package adapters

import (
	"context"
	"time"

	"schoolcompare/internal/cache"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
	// DefaultReadTimeout bounds each provider read.
	DefaultReadTimeout = 7 * time.Second
)

// CachedProvider adapts a provider.Provider with per-query LRU caches.
// Errors are never cached, so a not-found school is looked up again next time.
type CachedProvider struct {
	next    provider.Provider
	timeout time.Duration

	districtList *cache.LRUCache[[]core.District]
	districts    *cache.LRUCache[core.District]
	schools      *cache.LRUCache[[]core.SchoolWithEnrollment]
	details      *cache.LRUCache[core.SchoolDetail]
}

func NewCachedProvider(next provider.Provider, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		next:         next,
		timeout:      DefaultReadTimeout,
		districtList: cache.NewLRUCache[[]core.District](1, ttl),
		districts:    cache.NewLRUCache[core.District](size, ttl),
		schools:      cache.NewLRUCache[[]core.SchoolWithEnrollment](size, ttl),
		details:      cache.NewLRUCache[core.SchoolDetail](size, ttl),
	}
}

// WithTimeout overrides the per-read timeout. Zero disables it.
func (p *CachedProvider) WithTimeout(d time.Duration) *CachedProvider {
	p.timeout = d
	return p
}

const allDistrictsKey = "all"

// ListDistricts implements provider.DistrictReader
func (p *CachedProvider) ListDistricts(ctx context.Context) ([]core.District, error) {
	return cached(ctx, p, p.districtList, allDistrictsKey, p.next.ListDistricts)
}

// GetDistrict implements provider.DistrictReader
func (p *CachedProvider) GetDistrict(ctx context.Context, leaid string) (core.District, error) {
	return cached(ctx, p, p.districts, leaid, func(ctx context.Context) (core.District, error) {
		return p.next.GetDistrict(ctx, leaid)
	})
}

// ListSchoolsWithEnrollment implements provider.SchoolLister
func (p *CachedProvider) ListSchoolsWithEnrollment(ctx context.Context, leaid string) ([]core.SchoolWithEnrollment, error) {
	return cached(ctx, p, p.schools, leaid, func(ctx context.Context) ([]core.SchoolWithEnrollment, error) {
		return p.next.ListSchoolsWithEnrollment(ctx, leaid)
	})
}

// GetSchoolDetail implements provider.SchoolDetailReader
func (p *CachedProvider) GetSchoolDetail(ctx context.Context, ncessch string) (core.SchoolDetail, error) {
	return cached(ctx, p, p.details, ncessch, func(ctx context.Context) (core.SchoolDetail, error) {
		return p.next.GetSchoolDetail(ctx, ncessch)
	})
}

func cached[T any](ctx context.Context, p *CachedProvider, c *cache.LRUCache[T], key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate drops every cached read.
func (p *CachedProvider) Invalidate() {
	p.districtList.Purge()
	p.districts.Purge()
	p.schools.Purge()
	p.details.Purge()
}

// Register adds the caches to m's cleanup cycle.
func (p *CachedProvider) Register(m *cache.Manager) {
	m.Register("district_list", p.districtList)
	m.Register("districts", p.districts)
	m.Register("schools", p.schools)
	m.Register("school_details", p.details)
}

// Stats reports hit/miss counters per cache.
func (p *CachedProvider) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"district_list":  p.districtList.Stats(),
		"districts":      p.districts.Stats(),
		"schools":        p.schools.Stats(),
		"school_details": p.details.Stats(),
	}
}

var _ provider.Provider = (*CachedProvider)(nil)
