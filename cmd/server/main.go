package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/config"
	"github.com/householdpro/backend/internal/db"
	"github.com/householdpro/backend/internal/distance"
	"github.com/householdpro/backend/internal/events"
	"github.com/householdpro/backend/internal/geocode"
	httpapi "github.com/householdpro/backend/internal/http"
	"github.com/householdpro/backend/internal/metrics"
	"github.com/householdpro/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "householdpro-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()
	if cfg.DBAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build geocoder")
	}
	estimator, err := distance.New(cfg.DistanceBackend)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid distance backend")
	}

	presets, err := assignment.LoadPresets(cfg.AssignmentPresetsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.AssignmentPresetsFile).Msg("failed to load assignment presets")
	}
	defaults, ok := presets.Get(cfg.AssignmentPreset)
	if !ok {
		logger.Fatal().Str("preset", cfg.AssignmentPreset).Strs("known", presets.Names()).Msg("unknown assignment preset")
	}

	var (
		collector      metrics.Collector = metrics.Nop{}
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		collector, metricsHandler = prom, prom.Handler()
	}

	var publisher assignment.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect nats")
		}
		defer nc.Drain()
		publisher = &events.NATSPublisher{Conn: nc, Subject: cfg.NATSSubject, Logger: logger}
		logger.Info().Str("subject", cfg.NATSSubject).Msg("publishing assignment events")
	}

	assigner := assignment.NewService(store, store, assignment.Scorer{Resolver: resolver, Distance: estimator}, logger)
	assigner.Defaults = defaults
	assigner.Recorder = collector
	assigner.Publisher = publisher

	batch := &service.BatchService{
		Bookings: store,
		Runs:     store,
		Assigner: assigner,
		Metrics:  collector,
		Logger:   logger,
	}

	router := httpapi.Router(cfg, httpapi.Deps{
		Store:          store,
		Assigner:       assigner,
		Batch:          batch,
		Presets:        presets,
		Metrics:        collector,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("preset", cfg.AssignmentPreset).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// buildResolver returns the city table, optionally backed by Nominatim for
// locations the table does not know.
func buildResolver(cfg config.Config, logger zerolog.Logger) (geocode.Resolver, error) {
	var extra map[string]geocode.Point
	if cfg.CityCoordsPath != "" {
		coords, err := geocode.LoadCityCoords(cfg.CityCoordsPath)
		if err != nil {
			return nil, err
		}
		extra = coords
	}
	table := geocode.NewCityTable(extra)
	logger.Info().Int("cities", table.Len()).Msg("city table loaded")
	if cfg.Geocoder != config.GeocoderNominatim {
		return table, nil
	}
	remote := geocode.GeocoderResolver{
		Geocoder: &geocode.NominatimGeocoder{
			BaseURL:     cfg.NominatimURL,
			UserAgent:   cfg.GeocoderUserAgent,
			MinInterval: cfg.GeocoderInterval,
			Client:      &http.Client{Timeout: 10 * time.Second},
		},
		Country:       cfg.GeocoderCountry,
		MinConfidence: 0.2,
		Logger:        logger,
	}
	return geocode.Chain{table, remote}, nil
}
