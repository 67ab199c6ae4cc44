package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/randytsao24/moim/internal/models"
)

func newKakaoServer(t *testing.T, handler http.HandlerFunc) *KakaoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewKakaoClient(KakaoConfig{APIKey: "test-key", BaseURL: srv.URL})
}

func TestGeocodeAddress(t *testing.T) {
	client := newKakaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "KakaoAK test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/v2/local/search/address.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"documents":[{"address_name":"서울 강남구","x":"127.0276","y":"37.4979"}]}`))
	})

	got, err := client.Geocode(context.Background(), "서울 강남구")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	want := models.Coordinate{Lat: 37.4979, Lng: 127.0276}
	if got != want {
		t.Errorf("Geocode = %v, want %v", got, want)
	}
}

func TestGeocodeFallsBackToKeyword(t *testing.T) {
	var calls atomic.Int32
	client := newKakaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/v2/local/search/address.json":
			w.Write([]byte(`{"documents":[]}`))
		case "/v2/local/search/keyword.json":
			if r.URL.Query().Get("size") != "1" {
				t.Errorf("keyword search should ask for one result")
			}
			w.Write([]byte(`{"documents":[{"x":"126.9226","y":"37.5563"}]}`))
		}
	})

	got, err := client.Geocode(context.Background(), "홍대입구")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if got.Lat != 37.5563 {
		t.Errorf("Geocode = %v", got)
	}

	// Second call is served from cache
	if _, err := client.Geocode(context.Background(), "홍대입구"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

func TestGeocodeErrors(t *testing.T) {
	noKey := NewKakaoClient(KakaoConfig{})
	if _, err := noKey.Geocode(context.Background(), "강남"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}

	failing := newKakaoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := failing.Geocode(context.Background(), "강남"); err == nil {
		t.Error("expected error on 500")
	}
}

func TestReverseGeocode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		err  bool
	}{
		{"road address", `{"documents":[{"road_address":{"address_name":"테헤란로 1"},"address":{"address_name":"역삼동 1"}}]}`, "테헤란로 1", false},
		{"lot address only", `{"documents":[{"road_address":null,"address":{"address_name":"역삼동 1"}}]}`, "역삼동 1", false},
		{"empty", `{"documents":[]}`, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newKakaoServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("x") == "" || r.URL.Query().Get("y") == "" {
					t.Error("x and y are required")
				}
				w.Write([]byte(tc.body))
			})
			got, err := client.ReverseGeocode(context.Background(), models.Coordinate{Lat: 37.5, Lng: 127.03})
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, want error %v", err, tc.err)
			}
			if got != tc.want {
				t.Errorf("ReverseGeocode = %q, want %q", got, tc.want)
			}
		})
	}
}

type stubGeocoder struct {
	coord models.Coordinate
	err   error
}

func (s stubGeocoder) Geocode(context.Context, string) (models.Coordinate, error) {
	return s.coord, s.err
}

func TestGeocodingResolver(t *testing.T) {
	gaz := NewResolver(NewGazetteer())
	ctx := context.Background()

	ok := NewGeocodingResolver(stubGeocoder{coord: models.Coordinate{Lat: 1, Lng: 2}}, gaz)
	if c, src := ok.Resolve(ctx, "anything"); c.Lat != 1 || src != "geocoder" {
		t.Errorf("geocoder result not used: %v %s", c, src)
	}

	failing := NewGeocodingResolver(stubGeocoder{err: errors.New("down")}, gaz)
	if c, src := failing.Resolve(ctx, "강남"); c.Lat != 37.4979 || src != StageExact {
		t.Errorf("gazetteer fallback = %v %s", c, src)
	}

	none := NewGeocodingResolver(nil, gaz)
	if c, _ := none.Resolve(ctx, "어딘지 모름"); c != CityCenter {
		t.Errorf("unknown text = %v, want city center", c)
	}
}

func TestResolveMember(t *testing.T) {
	r := NewGeocodingResolver(nil, NewResolver(NewGazetteer()))
	ctx := context.Background()

	stored := &models.Coordinate{Lat: 1, Lng: 1}
	if got := r.ResolveMember(ctx, models.MemberLocation{ID: "a", Coordinate: stored, LocationText: "강남"}); got == nil || got.Lat != 1 {
		t.Errorf("stored coordinate should win, got %v", got)
	}
	if got := r.ResolveMember(ctx, models.MemberLocation{ID: "b", LocationText: "잠실"}); got == nil || got.Lat != 37.5133 {
		t.Errorf("text should resolve, got %v", got)
	}
	if got := r.ResolveMember(ctx, models.MemberLocation{ID: "c"}); got != nil {
		t.Errorf("member without location should be nil, got %v", got)
	}
}
