package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randytsao24/moim/internal/api/handlers"
	"github.com/randytsao24/moim/internal/config"
)

// Services are the backends the HTTP handlers call into
type Services struct {
	Engine     handlers.Recommender
	Catalog    handlers.VenueCatalog
	Locations  handlers.LocationResolver
	Reverse    handlers.ReverseGeocoder
	Alerts     handlers.AlertProvider
	RouteCache handlers.CacheStatsProvider
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	r := chi.NewRouter()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Catalog)
	rootHandler := handlers.NewRootHandler()
	recommendHandler := handlers.NewRecommendHandler(svc.Engine)
	venueHandler := handlers.NewVenueHandler(svc.Catalog, svc.Locations)
	locationHandler := handlers.NewLocationHandler(svc.Locations, svc.Reverse)
	transitHandler := handlers.NewTransitHandler(svc.Engine, svc.Locations, svc.Alerts, svc.RouteCache)

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Recovery)
	r.Use(Logging)
	r.Use(CORS(cfg.Server.CORSOrigins))

	r.NotFound(rootHandler.NotFound)
	r.MethodNotAllowed(rootHandler.MethodNotAllowed)

	// Core routes
	r.Get("/", rootHandler.Index)
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow))
		r.Use(Timeout(cfg.Server.RequestTimeout))

		r.Get("/", rootHandler.Index)
		r.Post("/recommend", recommendHandler.Recommend)

		// Transit routes
		r.Get("/route", transitHandler.GetRoute)
		r.Get("/alerts", transitHandler.GetServiceAlerts)
		r.Get("/cache/stats", transitHandler.GetCacheStats)

		// Location routes
		r.Get("/geocode", locationHandler.Geocode)
		r.Get("/reverse-geocode", locationHandler.ReverseGeocode)

		// Venue routes
		r.Route("/venues", func(r chi.Router) {
			r.Get("/", venueHandler.List)
			r.Get("/regions", venueHandler.Regions)
			r.Get("/categories", venueHandler.Categories)
			r.Get("/nearest", venueHandler.Nearest)
			r.Get("/{name}", venueHandler.Get)
			r.Post("/{name}/travel", recommendHandler.VenueTravel)
		})
	})

	return r
}
