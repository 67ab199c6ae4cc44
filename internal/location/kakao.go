package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/randytsao24/moim/internal/cache"
	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/upstream"
)

const (
	DefaultKakaoBaseURL = "https://dapi.kakao.com"
	kakaoUpstream       = "kakao-local"
)

var (
	// ErrNoAPIKey is returned when the Kakao REST key is not configured
	ErrNoAPIKey = errors.New("kakao api key not configured")

	// ErrNoResult is returned when Kakao finds nothing for a query
	ErrNoResult = errors.New("kakao returned no documents")
)

// KakaoConfig configures the Kakao Local API client
type KakaoConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Breaker  upstream.BreakerConfig
}

// KakaoClient geocodes addresses and place names with the Kakao Local API
type KakaoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	cache   *cache.Cache[models.Coordinate]
}

// NewKakaoClient creates a new Kakao client
func NewKakaoClient(cfg KakaoConfig) *KakaoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultKakaoBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker = upstream.DefaultBreakerConfig()
	}
	return &KakaoClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: upstream.NewBreaker[[]byte](kakaoUpstream, cfg.Breaker),
		cache: cache.New(cache.Options[models.Coordinate]{
			TTL:     cfg.CacheTTL,
			Metrics: cache.NewPrometheusMetrics("geocode"),
		}),
	}
}

// HasAPIKey returns true if the client has an API key configured
func (c *KakaoClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// SweepCache runs the geocode cache janitor until ctx is done
func (c *KakaoClient) SweepCache(ctx context.Context, interval time.Duration) error {
	return c.cache.Run(ctx, interval)
}

// Geocode looks the query up as an address first, then as a keyword
func (c *KakaoClient) Geocode(ctx context.Context, query string) (models.Coordinate, error) {
	if c.apiKey == "" {
		return models.Coordinate{}, ErrNoAPIKey
	}
	if cached, ok := c.cache.Get(query); ok {
		return cached, nil
	}

	coord, err := c.search(ctx, "/v2/local/search/address.json", url.Values{"query": {query}})
	if errors.Is(err, ErrNoResult) {
		coord, err = c.search(ctx, "/v2/local/search/keyword.json", url.Values{"query": {query}, "size": {"1"}})
	}
	if err != nil {
		return models.Coordinate{}, err
	}

	c.cache.Set(query, coord)
	return coord, nil
}

// ReverseGeocode returns the road address for a coordinate, or the lot
// address when no road address exists
func (c *KakaoClient) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("x", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	params.Set("y", strconv.FormatFloat(coord.Lat, 'f', -1, 64))

	body, err := c.get(ctx, "/v2/local/geo/coord2address.json", params)
	if err != nil {
		return "", err
	}

	var result coord2AddressResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing coord2address response: %w", err)
	}
	if len(result.Documents) == 0 {
		return "", ErrNoResult
	}

	doc := result.Documents[0]
	if doc.RoadAddress != nil && doc.RoadAddress.AddressName != "" {
		return doc.RoadAddress.AddressName, nil
	}
	if doc.Address != nil && doc.Address.AddressName != "" {
		return doc.Address.AddressName, nil
	}
	return "", ErrNoResult
}

func (c *KakaoClient) search(ctx context.Context, path string, params url.Values) (models.Coordinate, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return models.Coordinate{}, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return models.Coordinate{}, fmt.Errorf("parsing search response: %w", err)
	}
	if len(result.Documents) == 0 {
		return models.Coordinate{}, ErrNoResult
	}

	doc := result.Documents[0]
	lat, errLat := strconv.ParseFloat(doc.Y, 64)
	lng, errLng := strconv.ParseFloat(doc.X, 64)
	if errLat != nil || errLng != nil {
		return models.Coordinate{}, fmt.Errorf("invalid coordinates x=%q y=%q", doc.X, doc.Y)
	}
	return models.Coordinate{Lat: lat, Lng: lng}, nil
}

func (c *KakaoClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, upstream.Abandoned(ctx, fmt.Errorf("calling kakao: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("kakao API returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, upstream.Abandoned(ctx, fmt.Errorf("reading kakao response: %w", err))
		}
		return data, nil
	})

	metrics.UpstreamDuration.WithLabelValues(kakaoUpstream).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(kakaoUpstream, upstream.Outcome(err)).Inc()
	return body, err
}

// Geocoder turns free text into a coordinate
type Geocoder interface {
	Geocode(ctx context.Context, query string) (models.Coordinate, error)
}

// GeocodingResolver asks an external geocoder first and falls back to
// the gazetteer resolver. It never fails
type GeocodingResolver struct {
	geocoder Geocoder
	resolver *Resolver
}

// NewGeocodingResolver creates a resolver chain. geocoder may be nil
func NewGeocodingResolver(geocoder Geocoder, resolver *Resolver) *GeocodingResolver {
	return &GeocodingResolver{geocoder: geocoder, resolver: resolver}
}

// Resolve returns a coordinate and the name of the source that produced it
func (g *GeocodingResolver) Resolve(ctx context.Context, text string) (models.Coordinate, string) {
	if g.geocoder != nil {
		coord, err := g.geocoder.Geocode(ctx, text)
		if err == nil {
			return coord, "geocoder"
		}
		if !errors.Is(err, ErrNoAPIKey) {
			logging.Ctx(ctx).Debug().Err(err).Str("location", text).Msg("geocoder failed, using gazetteer")
		}
	}
	return g.resolver.ResolveStage(text)
}

// ResolveMember returns the member's starting point. A stored coordinate
// wins over text; nil means the member gave neither
func (g *GeocodingResolver) ResolveMember(ctx context.Context, m models.MemberLocation) *models.Coordinate {
	if m.Coordinate != nil {
		c := *m.Coordinate
		return &c
	}
	if m.LocationText == "" {
		return nil
	}
	c, _ := g.Resolve(ctx, m.LocationText)
	return &c
}

type searchResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"`
		Y           string `json:"y"`
	} `json:"documents"`
}

type coord2AddressResponse struct {
	Documents []struct {
		RoadAddress *struct {
			AddressName string `json:"address_name"`
		} `json:"road_address"`
		Address *struct {
			AddressName string `json:"address_name"`
		} `json:"address"`
	} `json:"documents"`
}
