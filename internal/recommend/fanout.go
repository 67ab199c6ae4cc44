package recommend

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/transit"
)

// Fan-out pair outcomes
const (
	pairResolved    = "resolved"
	pairTimeout     = "timeout"
	pairPlaceholder = "placeholder"
)

const (
	DefaultFanOutTimeout      = 8 * time.Second
	DefaultPlaceholderMinutes = 30
)

// RouteResolver resolves one origin/destination pair. Implementations
// always return a usable route
type RouteResolver interface {
	Resolve(ctx context.Context, origin, destination models.Coordinate) models.TransitRoute
}

// FanOutConfig bounds a fan-out
type FanOutConfig struct {
	// Timeout covers the whole fan-out; zero uses DefaultFanOutTimeout
	Timeout time.Duration
	// Concurrency caps in-flight pairs; zero means one goroutine per pair
	Concurrency int
	// PlaceholderMinutes is the duration given to members with no coordinate
	PlaceholderMinutes int
}

// FanOut resolves routes for every member/venue pair concurrently
type FanOut struct {
	resolver RouteResolver
	cfg      FanOutConfig
}

// NewFanOut creates a fan-out over resolver
func NewFanOut(resolver RouteResolver, cfg FanOutConfig) *FanOut {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFanOutTimeout
	}
	if cfg.PlaceholderMinutes <= 0 {
		cfg.PlaceholderMinutes = DefaultPlaceholderMinutes
	}
	return &FanOut{resolver: resolver, cfg: cfg}
}

// ResolveAll returns travel summaries indexed [venue][member]. Every venue
// gets exactly one summary per member, in member order. Members without a
// coordinate get a placeholder; pairs still pending when the timeout fires
// get a straight-line estimate
func (f *FanOut) ResolveAll(ctx context.Context, members []models.MemberLocation, venues []models.Venue) [][]models.TravelSummary {
	start := time.Now()
	defer func() { metrics.FanOutDuration.Observe(time.Since(start).Seconds()) }()

	results := make([][]models.TravelSummary, len(venues))
	filled := make([][]bool, len(venues))
	for i := range venues {
		results[i] = make([]models.TravelSummary, len(members))
		filled[i] = make([]bool, len(members))
	}

	fanCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		closed bool
	)
	store := func(vi, mi int, s models.TravelSummary) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		results[vi][mi] = s
		filled[vi][mi] = true
	}

	var placeholders int
	type pair struct{ vi, mi int }
	var pending []pair
	for vi := range venues {
		for mi, m := range members {
			if m.Coordinate == nil {
				results[vi][mi] = f.placeholder(m.ID)
				filled[vi][mi] = true
				placeholders++
				continue
			}
			pending = append(pending, pair{vi, mi})
		}
	}

	g, gctx := errgroup.WithContext(fanCtx)
	if f.cfg.Concurrency > 0 {
		g.SetLimit(f.cfg.Concurrency)
	}

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for _, p := range pending {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				m := members[p.mi]
				route := f.resolver.Resolve(gctx, *m.Coordinate, venues[p.vi].Location)
				store(p.vi, p.mi, models.SummaryFromRoute(m.ID, m.Coordinate, route))
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-fanCtx.Done():
	}

	mu.Lock()
	closed = true
	var resolved, timedOut int
	for _, p := range pending {
		if filled[p.vi][p.mi] {
			resolved++
			continue
		}
		m := members[p.mi]
		route := transit.Estimate(*m.Coordinate, venues[p.vi].Location)
		results[p.vi][p.mi] = models.SummaryFromRoute(m.ID, m.Coordinate, route)
		timedOut++
	}
	mu.Unlock()

	metrics.FanOutPairs.WithLabelValues(pairResolved).Add(float64(resolved))
	metrics.FanOutPairs.WithLabelValues(pairTimeout).Add(float64(timedOut))
	metrics.FanOutPairs.WithLabelValues(pairPlaceholder).Add(float64(placeholders))

	if timedOut > 0 {
		logging.Ctx(ctx).Warn().
			Int("pending", timedOut).
			Int("pairs", len(pending)).
			Dur("timeout", f.cfg.Timeout).
			Msg("fan-out timed out, filled remaining pairs with estimates")
	}

	return results
}

func (f *FanOut) placeholder(memberID string) models.TravelSummary {
	return models.TravelSummary{
		MemberID:        memberID,
		DurationMinutes: f.cfg.PlaceholderMinutes,
		Kind:            models.KindUnknown,
		Estimated:       true,
	}
}
