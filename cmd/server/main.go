// Package main is the entry point for the moim server
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/randytsao24/moim/internal/api"
	"github.com/randytsao24/moim/internal/config"
	"github.com/randytsao24/moim/internal/location"
	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/recommend"
	"github.com/randytsao24/moim/internal/supervisor"
	"github.com/randytsao24/moim/internal/transit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration error")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	gazetteer := location.NewGazetteer()
	if cfg.Data.GazetteerPath != "" {
		if err := gazetteer.Load(cfg.Data.GazetteerPath); err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Data.GazetteerPath).Msg("loading gazetteer")
		}
	}

	catalog := recommend.NewCatalog(nil)
	if err := catalog.Load(cfg.Data.CatalogPath); err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Data.CatalogPath).Msg("loading venue catalog")
	}

	odsay := transit.NewODsayClient(transit.ODsayConfig{
		APIKey:        cfg.Transit.APIKey,
		BaseURL:       cfg.Transit.BaseURL,
		Timeout:       cfg.Transit.Timeout,
		RatePerSecond: cfg.Transit.RatePerSecond,
		Burst:         cfg.Transit.Burst,
		Breaker:       cfg.Transit.Breaker,
	})
	var searcher transit.RouteSearcher
	if odsay.HasAPIKey() {
		searcher = odsay
	} else {
		logging.Warn().Msg("ODSAY_API_KEY not set, travel times will be estimated")
	}
	routes := transit.NewResolver(searcher, transit.ResolverConfig{
		CacheTTL:      cfg.Cache.TTL,
		CacheCapacity: cfg.Cache.Capacity,
		SearchTimeout: 2 * cfg.Transit.Timeout,
	})

	kakao := location.NewKakaoClient(location.KakaoConfig{
		APIKey:   cfg.Geocoding.KakaoAPIKey,
		BaseURL:  cfg.Geocoding.BaseURL,
		Timeout:  cfg.Geocoding.Timeout,
		CacheTTL: cfg.Geocoding.CacheTTL,
		Breaker:  cfg.Geocoding.Breaker,
	})
	if !kakao.HasAPIKey() {
		logging.Warn().Msg("KAKAO_REST_API_KEY not set, locations resolve from the gazetteer")
	}
	locator := location.NewGeocodingResolver(kakao, location.NewResolver(gazetteer))

	alerts := transit.NewAlertService(cfg.Alerts.FeedURL, cfg.Alerts.Language, cfg.Alerts.Timeout, cfg.Alerts.TTL)

	engine := recommend.NewEngine(catalog, locator, routes, alerts, recommend.Config{
		DefaultCount:   cfg.Recommend.DefaultCount,
		MaxCount:       cfg.Recommend.MaxCount,
		CandidateLimit: cfg.Recommend.CandidateLimit,
		SampleSize:     cfg.Recommend.SampleSize,
		Weights:        cfg.Recommend.Scoring,
		FanOut: recommend.FanOutConfig{
			Timeout:            cfg.Recommend.FanOutTimeout,
			Concurrency:        cfg.Recommend.Concurrency,
			PlaceholderMinutes: cfg.Recommend.PlaceholderMinutes,
		},
	})

	router := api.NewRouter(cfg, api.Services{
		Engine:     engine,
		Catalog:    catalog,
		Locations:  locator,
		Reverse:    kakao,
		Alerts:     alerts,
		RouteCache: routes,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(supervisor.NewCacheSweeper("route", cfg.Cache.SweepInterval, routes.SweepCache))
	tree.AddMaintenanceService(supervisor.NewCacheSweeper("geocode", cfg.Cache.SweepInterval, kakao.SweepCache))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Str("env", cfg.Server.Env).
		Int("venues", catalog.Count()).
		Int("places", gazetteer.Count()).
		Bool("alerts", alerts.Enabled()).
		Msg("moim server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped")
		os.Exit(1)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("services did not stop in time")
	}
	logging.Info().Msg("moim server stopped")
}
