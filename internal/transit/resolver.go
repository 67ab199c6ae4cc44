package transit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/randytsao24/moim/internal/cache"
	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
)

// Route sources, in the order the resolver tries them
const (
	SourceCache    = "cache"
	SourceUpstream = "upstream"
	SourceEstimate = "estimate"
)

// RouteSearcher is an upstream transit routing API
type RouteSearcher interface {
	SearchRoute(ctx context.Context, origin, destination models.Coordinate) (models.TransitRoute, error)
}

// CacheKey quantizes both endpoints to 3 decimal places (about 100 m)
// so nearby requests share an entry: "lat,lng->lat,lng"
func CacheKey(origin, destination models.Coordinate) string {
	return quantize(origin.Lat) + "," + quantize(origin.Lng) + "->" +
		quantize(destination.Lat) + "," + quantize(destination.Lng)
}

func quantize(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

const defaultSearchTimeout = 15 * time.Second

// ResolverConfig configures the route cache. SearchTimeout bounds one
// shared upstream search, independent of any caller's deadline
type ResolverConfig struct {
	CacheTTL      time.Duration
	CacheCapacity int
	SearchTimeout time.Duration
	Now           func() time.Time
}

// Resolver resolves routes through cache, then upstream, then a
// straight-line estimate. Resolve never fails
type Resolver struct {
	searcher      RouteSearcher
	cache         *cache.Cache[models.TransitRoute]
	group         singleflight.Group
	searchTimeout time.Duration
}

// NewResolver creates a route resolver. searcher may be nil, in which
// case every miss is estimated
func NewResolver(searcher RouteSearcher, cfg ResolverConfig) *Resolver {
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	return &Resolver{
		searcher:      searcher,
		searchTimeout: cfg.SearchTimeout,
		cache: cache.New(cache.Options[models.TransitRoute]{
			TTL:      cfg.CacheTTL,
			Capacity: cfg.CacheCapacity,
			Now:      cfg.Now,
			Copy:     models.TransitRoute.Clone,
			Metrics:  cache.NewPrometheusMetrics("route"),
		}),
	}
}

// Resolve returns the best available route from origin to destination
func (r *Resolver) Resolve(ctx context.Context, origin, destination models.Coordinate) models.TransitRoute {
	route, _ := r.ResolveSource(ctx, origin, destination)
	return route
}

// ResolveSource is Resolve that also reports where the route came from
func (r *Resolver) ResolveSource(ctx context.Context, origin, destination models.Coordinate) (models.TransitRoute, string) {
	key := CacheKey(origin, destination)

	if cached, ok := r.cache.Get(key); ok {
		metrics.RouteResolutions.WithLabelValues(SourceCache).Inc()
		return cached, SourceCache
	}

	// flights outlive any one caller's deadline
	flight := r.group.DoChan(key, func() (any, error) {
		// another flight may have filled the entry since our lookup
		if cached, ok := r.cache.Get(key); ok {
			return resolved{route: cached, source: SourceCache}, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.searchTimeout)
		defer cancel()

		res, cacheable := r.fetch(fctx, key, origin, destination)
		if cacheable {
			r.cache.Set(key, res.route)
		}
		return res, nil
	})

	var res resolved
	select {
	case out := <-flight:
		res = out.Val.(resolved)
	case <-ctx.Done():
		res = resolved{route: Estimate(origin, destination), source: SourceEstimate}
	}

	metrics.RouteResolutions.WithLabelValues(res.source).Inc()
	return res.route.Clone(), res.source
}

type resolved struct {
	route  models.TransitRoute
	source string
}

// fetch asks upstream and falls back to an estimate. The result is
// cacheable unless the search was cut short by a deadline
func (r *Resolver) fetch(ctx context.Context, key string, origin, destination models.Coordinate) (resolved, bool) {
	if r.searcher != nil {
		route, err := r.searcher.SearchRoute(ctx, origin, destination)
		if err == nil {
			return resolved{route: route, source: SourceUpstream}, true
		}
		logging.Ctx(ctx).Debug().Err(err).Str("route", key).Msg("route search failed, estimating")
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return resolved{route: Estimate(origin, destination), source: SourceEstimate}, false
		}
	}
	return resolved{route: Estimate(origin, destination), source: SourceEstimate}, true
}

// CacheStats returns route cache counters
func (r *Resolver) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// CacheKeys returns cached route keys from oldest to newest
func (r *Resolver) CacheKeys() []string {
	return r.cache.Keys()
}

// SweepCache runs the route cache janitor until ctx is done
func (r *Resolver) SweepCache(ctx context.Context, interval time.Duration) error {
	return r.cache.Run(ctx, interval)
}
