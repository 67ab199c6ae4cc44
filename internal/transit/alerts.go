package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/moim/internal/cache"
	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/upstream"
)

const (
	alertsUpstream = "gtfs-alerts"
	alertsCacheKey = "all"
)

// ServiceAlert is an active alert from a GTFS-realtime feed
type ServiceAlert struct {
	ID          string   `json:"id"`
	Routes      []string `json:"routes"`
	Header      string   `json:"header"`
	Description string   `json:"description"`
}

// AlertService fetches and caches GTFS-realtime service alerts
type AlertService struct {
	feedURL  string
	language string
	client   *http.Client
	cache    *cache.Cache[[]ServiceAlert]
	now      func() time.Time
}

// NewAlertService creates a new alert service. An empty feedURL
// disables it
func NewAlertService(feedURL, language string, timeout, cacheTTL time.Duration) *AlertService {
	if language == "" {
		language = "ko"
	}
	return &AlertService{
		feedURL:  feedURL,
		language: language,
		client:   &http.Client{Timeout: timeout},
		cache: cache.New(cache.Options[[]ServiceAlert]{
			TTL:      cacheTTL,
			Capacity: 1,
			Metrics:  cache.NewPrometheusMetrics("alerts"),
		}),
		now: time.Now,
	}
}

// Enabled reports whether a feed is configured
func (s *AlertService) Enabled() bool {
	return s != nil && s.feedURL != ""
}

// GetAlerts returns active service alerts, optionally filtered by route
func (s *AlertService) GetAlerts(ctx context.Context, routes []string) ([]ServiceAlert, error) {
	allAlerts, err := s.fetchAlerts(ctx)
	if err != nil {
		return nil, err
	}

	if len(routes) == 0 {
		return allAlerts, nil
	}

	var filtered []ServiceAlert
	for _, alert := range allAlerts {
		if alert.affectsAny(routes) {
			filtered = append(filtered, alert)
		}
	}
	return filtered, nil
}

// Advisories returns the alerts touching any of the given line labels.
// Feed failures yield no advisories
func (s *AlertService) Advisories(ctx context.Context, lines []string) []models.Advisory {
	if !s.Enabled() || len(lines) == 0 {
		return nil
	}

	alerts, err := s.GetAlerts(ctx, lines)
	if err != nil {
		return nil
	}

	advisories := make([]models.Advisory, 0, len(alerts))
	for _, a := range alerts {
		advisories = append(advisories, models.Advisory{
			ID:     a.ID,
			Lines:  a.matching(lines),
			Header: a.Header,
		})
	}
	return advisories
}

// affectsAny matches route ids against line labels loosely, since feeds
// use ids like "2" or "1002" where routes say "2호선"
func (a ServiceAlert) affectsAny(lines []string) bool {
	return len(a.matching(lines)) > 0
}

func (a ServiceAlert) matching(lines []string) []string {
	var out []string
	for _, line := range lines {
		for _, r := range a.Routes {
			if r == line || (strings.HasPrefix(line, r) && !isDigit(line, len(r))) {
				out = append(out, line)
				break
			}
		}
	}
	return out
}

// isDigit reports whether s has a digit at byte offset i
func isDigit(s string, i int) bool {
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}

func (s *AlertService) fetchAlerts(ctx context.Context) ([]ServiceAlert, error) {
	if cached, ok := s.cache.Get(alertsCacheKey); ok {
		return cached, nil
	}

	alerts, err := s.download(ctx)
	metrics.UpstreamRequests.WithLabelValues(alertsUpstream, upstream.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.cache.Set(alertsCacheKey, alerts)
	return alerts, nil
}

func (s *AlertService) download(ctx context.Context) ([]ServiceAlert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building alerts request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching alerts feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alerts feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading alerts response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parsing alerts protobuf: %w", err)
	}

	return s.parseAlerts(feed), nil
}

func (s *AlertService) parseAlerts(feed *gtfs.FeedMessage) []ServiceAlert {
	alerts := []ServiceAlert{}
	now := s.now().Unix()

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		active := len(alert.GetActivePeriod()) == 0
		for _, period := range alert.GetActivePeriod() {
			start := int64(period.GetStart())
			end := int64(period.GetEnd())
			if now >= start && (end == 0 || now < end) {
				active = true
				break
			}
		}
		if !active {
			continue
		}

		var routes []string
		seen := make(map[string]bool)
		for _, ie := range alert.GetInformedEntity() {
			if routeID := ie.GetRouteId(); routeID != "" && !seen[routeID] {
				seen[routeID] = true
				routes = append(routes, routeID)
			}
		}
		if len(routes) == 0 {
			continue
		}

		header := s.translatedText(alert.GetHeaderText())
		if header == "" {
			continue
		}

		alerts = append(alerts, ServiceAlert{
			ID:          entity.GetId(),
			Routes:      routes,
			Header:      header,
			Description: s.translatedText(alert.GetDescriptionText()),
		})
	}

	return alerts
}

func (s *AlertService) translatedText(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if t.GetLanguage() == s.language || t.GetLanguage() == "" {
			return t.GetText()
		}
	}
	if len(ts.GetTranslation()) > 0 {
		return ts.GetTranslation()[0].GetText()
	}
	return ""
}
