// Package transit resolves public-transit routes between coordinates
package transit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/upstream"
)

const (
	DefaultODsayBaseURL = "https://api.odsay.com"
	odsayUpstream       = "odsay"

	defaultSubwayLabel = "지하철"
	defaultBusLabel    = "버스"
)

// ODsay subPath traffic types
const (
	trafficSubway = 1
	trafficBus    = 2
	trafficWalk   = 3
)

var (
	// ErrNoAPIKey is returned when the ODsay key is not configured
	ErrNoAPIKey = errors.New("odsay api key not configured")

	// ErrNoItinerary is returned when ODsay answers with an empty path list
	ErrNoItinerary = errors.New("odsay returned no itinerary")

	// ErrMalformed is returned for itineraries with impossible values
	ErrMalformed = errors.New("odsay returned a malformed itinerary")

	// ErrUpstreamStatus wraps non-200 responses
	ErrUpstreamStatus = errors.New("odsay returned non-OK status")
)

// APIError is an error object embedded in an ODsay response body
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("odsay error %s: %s", e.Code, e.Message)
}

// ODsayConfig configures the ODsay client
type ODsayConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Breaker       upstream.BreakerConfig
}

// ODsayClient queries the ODsay public transit path search API
type ODsayClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewODsayClient creates a new ODsay client
func NewODsayClient(cfg ODsayConfig) *ODsayClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultODsayBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker = upstream.DefaultBreakerConfig()
	}

	return &ODsayClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: upstream.NewBreaker[[]byte](odsayUpstream, cfg.Breaker),
	}
}

// HasAPIKey returns true if the client has an API key configured
func (c *ODsayClient) HasAPIKey() bool {
	return c.apiKey != ""
}

// SearchRoute returns the first itinerary ODsay suggests from origin to destination
func (c *ODsayClient) SearchRoute(ctx context.Context, origin, destination models.Coordinate) (models.TransitRoute, error) {
	if c.apiKey == "" {
		return models.TransitRoute{}, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("SX", strconv.FormatFloat(origin.Lng, 'f', -1, 64))
	params.Set("SY", strconv.FormatFloat(origin.Lat, 'f', -1, 64))
	params.Set("EX", strconv.FormatFloat(destination.Lng, 'f', -1, 64))
	params.Set("EY", strconv.FormatFloat(destination.Lat, 'f', -1, 64))
	params.Set("apiKey", c.apiKey)

	body, err := c.fetch(ctx, c.baseURL+"/v1/api/searchPubTransPathT?"+params.Encode())
	if err != nil {
		return models.TransitRoute{}, err
	}

	return ParsePathSearch(body)
}

func (c *ODsayClient) fetch(ctx context.Context, apiURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, upstream.Abandoned(ctx, fmt.Errorf("fetching route: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, upstream.Abandoned(ctx, fmt.Errorf("reading response: %w", err))
		}
		return data, nil
	})

	metrics.UpstreamDuration.WithLabelValues(odsayUpstream).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(odsayUpstream, upstream.Outcome(err)).Inc()
	return body, err
}

// ParsePathSearch decodes a searchPubTransPathT body into a route built
// from its first itinerary
func ParsePathSearch(body []byte) (models.TransitRoute, error) {
	var result pathSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return models.TransitRoute{}, fmt.Errorf("parsing response: %w", err)
	}

	if apiErr := result.apiError(); apiErr != nil {
		return models.TransitRoute{}, apiErr
	}
	if result.Result == nil || len(result.Result.Path) == 0 {
		return models.TransitRoute{}, ErrNoItinerary
	}

	best := result.Result.Path[0]
	info := best.Info
	if info.TotalTime < 0 {
		return models.TransitRoute{}, fmt.Errorf("%w: totalTime %d", ErrMalformed, info.TotalTime)
	}

	route := models.TransitRoute{
		TotalDurationMinutes: info.TotalTime,
		TransferCount:        max(0, info.BusTransitCount+info.SubwayTransitCount-1),
		WalkMinutes:          max(0, int(math.Round(float64(info.TotalWalk)/60))),
		FareAmount:           info.Payment,
		Kind:                 routeKind(best.PathType),
		Legs:                 make([]models.RouteLeg, 0, len(best.SubPath)),
	}

	for _, sub := range best.SubPath {
		if leg, ok := sub.leg(); ok {
			route.Legs = append(route.Legs, leg)
		}
	}

	return route, nil
}

func routeKind(pathType int) models.RouteKind {
	switch pathType {
	case 1:
		return models.KindSubway
	case 2:
		return models.KindBus
	default:
		return models.KindSubwayBus
	}
}

// API response structures
type pathSearchResponse struct {
	Error  json.RawMessage `json:"error"`
	Result *struct {
		Path []struct {
			PathType int `json:"pathType"`
			Info     struct {
				TotalTime          int `json:"totalTime"`
				Payment            int `json:"payment"`
				BusTransitCount    int `json:"busTransitCount"`
				SubwayTransitCount int `json:"subwayTransitCount"`
				TotalWalk          int `json:"totalWalk"`
			} `json:"info"`
			SubPath []subPath `json:"subPath"`
		} `json:"path"`
	} `json:"result"`
}

// apiError extracts the error object, which ODsay sends either as a
// single object or as a one-element array
func (r pathSearchResponse) apiError() *APIError {
	raw := bytes.TrimSpace(r.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	type errBody struct {
		Code    flexString `json:"code"`
		Message string     `json:"message"`
		Msg     string     `json:"msg"`
	}
	var single errBody
	if err := json.Unmarshal(raw, &single); err != nil {
		var list []errBody
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return &APIError{Message: string(raw)}
		}
		single = list[0]
	}

	msg := single.Message
	if msg == "" {
		msg = single.Msg
	}
	return &APIError{Code: string(single.Code), Message: msg}
}

type subPath struct {
	TrafficType  int    `json:"trafficType"`
	SectionTime  int    `json:"sectionTime"`
	StationCount int    `json:"stationCount"`
	StartName    string `json:"startName"`
	EndName      string `json:"endName"`
	Lane         []struct {
		Name  string     `json:"name"`
		BusNo flexString `json:"busNo"`
	} `json:"lane"`
	PassStopList *struct {
		Stations []struct {
			X flexFloat `json:"x"`
			Y flexFloat `json:"y"`
		} `json:"stations"`
	} `json:"passStopList"`
}

func (s subPath) leg() (models.RouteLeg, bool) {
	switch s.TrafficType {
	case trafficWalk:
		if s.SectionTime <= 0 {
			return models.RouteLeg{}, false
		}
		return models.RouteLeg{
			Mode:            models.ModeWalk,
			StartLabel:      s.StartName,
			EndLabel:        s.EndName,
			DurationMinutes: s.SectionTime,
		}, true

	case trafficSubway:
		label := defaultSubwayLabel
		if len(s.Lane) > 0 && s.Lane[0].Name != "" {
			label = s.Lane[0].Name
		}
		return s.transitLeg(models.ModeSubway, label), true

	case trafficBus:
		label := defaultBusLabel
		if len(s.Lane) > 0 && s.Lane[0].BusNo != "" {
			label = string(s.Lane[0].BusNo)
		}
		return s.transitLeg(models.ModeBus, label), true
	}
	return models.RouteLeg{}, false
}

func (s subPath) transitLeg(mode models.LegMode, label string) models.RouteLeg {
	leg := models.RouteLeg{
		Mode:            mode,
		StartLabel:      s.StartName,
		EndLabel:        s.EndName,
		LineLabel:       label,
		DurationMinutes: max(0, s.SectionTime),
		StopCount:       max(0, s.StationCount),
	}
	if s.PassStopList != nil {
		leg.PathPoints = make([]models.Coordinate, 0, len(s.PassStopList.Stations))
		for _, st := range s.PassStopList.Stations {
			leg.PathPoints = append(leg.PathPoints, models.Coordinate{Lat: float64(st.Y), Lng: float64(st.X)})
		}
	}
	return leg
}

// flexFloat accepts both 127.02 and "127.02"
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", b, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts both "7016" and 7016
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(bytes.Trim(b, `"`))
	return nil
}
