package recommend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/transit"
)

// fakeRoutes answers with a duration derived from the destination so
// placement can be checked
type fakeRoutes struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	block    chan struct{}
}

func (f *fakeRoutes) Resolve(ctx context.Context, origin, destination models.Coordinate) models.TransitRoute {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return models.TransitRoute{
		TotalDurationMinutes: int(destination.Lat) + int(origin.Lng),
		Kind:                 models.KindSubway,
	}
}

func coord(lat, lng float64) *models.Coordinate {
	return &models.Coordinate{Lat: lat, Lng: lng}
}

func TestResolveAllPlacement(t *testing.T) {
	routes := &fakeRoutes{delay: 5 * time.Millisecond}
	f := NewFanOut(routes, FanOutConfig{})

	members := []models.MemberLocation{
		{ID: "a", Coordinate: coord(0, 1)},
		{ID: "b", Coordinate: coord(0, 2)},
		{ID: "c", Coordinate: coord(0, 3)},
	}
	venues := []models.Venue{
		{Name: "v10", Location: models.Coordinate{Lat: 10}},
		{Name: "v20", Location: models.Coordinate{Lat: 20}},
	}

	got := f.ResolveAll(context.Background(), members, venues)

	if len(got) != len(venues) {
		t.Fatalf("venues = %d, want %d", len(got), len(venues))
	}
	for vi, row := range got {
		if len(row) != len(members) {
			t.Fatalf("venue %d has %d summaries, want %d", vi, len(row), len(members))
		}
		for mi, s := range row {
			want := int(venues[vi].Location.Lat) + mi + 1
			if s.MemberID != members[mi].ID || s.DurationMinutes != want {
				t.Errorf("[%d][%d] = %+v, want member %s duration %d", vi, mi, s, members[mi].ID, want)
			}
			if s.Origin == nil || *s.Origin != *members[mi].Coordinate {
				t.Errorf("[%d][%d] origin = %v", vi, mi, s.Origin)
			}
		}
	}
	if routes.calls.Load() != 6 {
		t.Errorf("calls = %d, want 6", routes.calls.Load())
	}
}

func TestResolveAllPlaceholder(t *testing.T) {
	routes := &fakeRoutes{}
	f := NewFanOut(routes, FanOutConfig{})

	members := []models.MemberLocation{
		{ID: "located", Coordinate: coord(0, 1)},
		{ID: "unknown"},
	}
	got := f.ResolveAll(context.Background(), members, []models.Venue{{Location: models.Coordinate{Lat: 10}}})

	ph := got[0][1]
	if ph.MemberID != "unknown" || ph.DurationMinutes != DefaultPlaceholderMinutes || ph.Kind != models.KindUnknown {
		t.Errorf("placeholder = %+v", ph)
	}
	if ph.Origin != nil || !ph.Estimated {
		t.Errorf("placeholder should have no origin and be estimated: %+v", ph)
	}
	if routes.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (placeholder needs no route)", routes.calls.Load())
	}
}

func TestResolveAllTimeoutFillsEstimates(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	routes := &fakeRoutes{block: release}
	f := NewFanOut(routes, FanOutConfig{Timeout: 30 * time.Millisecond})

	origin := models.Coordinate{Lat: 37.4979, Lng: 127.0276}
	dest := models.Coordinate{Lat: 37.5563, Lng: 126.9226}
	members := []models.MemberLocation{{ID: "a", Coordinate: &origin}, {ID: "b"}}

	start := time.Now()
	got := f.ResolveAll(context.Background(), members, []models.Venue{{Location: dest}})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("ResolveAll took %v, should give up at the timeout", elapsed)
	}

	want := transit.Estimate(origin, dest)
	if got[0][0].DurationMinutes != want.TotalDurationMinutes || !got[0][0].Estimated {
		t.Errorf("timed-out pair = %+v, want estimate %d", got[0][0], want.TotalDurationMinutes)
	}
	if got[0][1].DurationMinutes != DefaultPlaceholderMinutes {
		t.Errorf("placeholder = %+v", got[0][1])
	}
}

func TestResolveAllConcurrencyLimit(t *testing.T) {
	routes := &fakeRoutes{delay: 10 * time.Millisecond}
	f := NewFanOut(routes, FanOutConfig{Concurrency: 2})

	var members []models.MemberLocation
	for i := 0; i < 4; i++ {
		members = append(members, models.MemberLocation{ID: string(rune('a' + i)), Coordinate: coord(0, 1)})
	}
	venues := []models.Venue{{Location: models.Coordinate{Lat: 1}}, {Location: models.Coordinate{Lat: 2}}}

	got := f.ResolveAll(context.Background(), members, venues)
	if routes.calls.Load() != 8 {
		t.Errorf("calls = %d, want 8", routes.calls.Load())
	}
	if p := routes.peak.Load(); p > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", p)
	}
	for _, row := range got {
		for _, s := range row {
			if s.DurationMinutes == 0 {
				t.Errorf("unfilled summary %+v", s)
			}
		}
	}
}

func TestResolveAllEmpty(t *testing.T) {
	f := NewFanOut(&fakeRoutes{}, FanOutConfig{})

	if got := f.ResolveAll(context.Background(), nil, []models.Venue{{}, {}}); len(got) != 2 || len(got[0]) != 0 {
		t.Errorf("no members = %v", got)
	}
	if got := f.ResolveAll(context.Background(), []models.MemberLocation{{ID: "a"}}, nil); len(got) != 0 {
		t.Errorf("no venues = %v", got)
	}
}

func TestResolveAllConcurrentCallers(t *testing.T) {
	f := NewFanOut(&fakeRoutes{delay: time.Millisecond}, FanOutConfig{})
	members := []models.MemberLocation{{ID: "a", Coordinate: coord(0, 1)}, {ID: "b", Coordinate: coord(0, 2)}}
	venues := []models.Venue{{Location: models.Coordinate{Lat: 5}}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := f.ResolveAll(context.Background(), members, venues)
			if got[0][0].DurationMinutes != 6 || got[0][1].DurationMinutes != 7 {
				t.Errorf("got %+v", got[0])
			}
		}()
	}
	wg.Wait()
}
