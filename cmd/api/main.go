package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tileforge/internal/adapter/repo"
	"tileforge/internal/domain"
	"tileforge/internal/http/handlers"
	"tileforge/internal/http/httpapi"
	"tileforge/internal/infra"
	"tileforge/internal/infra/geoip"
	"tileforge/internal/middleware"
	"tileforge/internal/providers/dashscope"
	"tileforge/internal/providers/stability"
	"tileforge/internal/storage"
	"tileforge/internal/texture"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// History is optional; the pipeline never depends on the database.
	var history domain.RunRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		runs := repo.NewRunRepository(pool)
		if err := runs.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure runs schema")
		}
		history = runs
	}

	var country middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		country = resolver.CountryCode
	}

	store, err := storage.NewFileStore(cfg.ScratchDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare scratch storage")
	}

	stabilityClient, err := stability.NewClient(stability.Options{
		APIKey:         cfg.StabilityAPIKey,
		BaseURL:        cfg.StabilityBaseURL,
		Engine:         cfg.StabilityEngine,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build stability client")
	}
	dashscopeClient, err := dashscope.NewClient(dashscope.Options{
		APIKey:         cfg.DashScopeAPIKey,
		BaseURL:        cfg.DashScopeBaseURL,
		Model:          cfg.DashScopeModel,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build dashscope client")
	}

	opts := texture.Options{
		Size:        cfg.TextureSize,
		CallTimeout: cfg.ProviderTimeout,
		Store:       store,
		Logger:      &logger,
	}
	stabilityAdapter := &texture.StabilityAdapter{Client: stabilityClient}
	if stabilityClient.HasCredentials() {
		opts.Text = stabilityAdapter
		opts.Inpainter = stabilityAdapter
	} else {
		logger.Warn().Msg("stability credentials missing; text-to-image stage disabled")
	}
	if dashscopeClient.HasCredentials() {
		opts.Editor = &texture.DashScopeAdapter{Client: dashscopeClient}
	} else {
		logger.Warn().Msg("dashscope credentials missing; image-edit stage disabled")
	}
	pipeline := texture.NewPipeline(opts)

	app := handlers.NewApp(cfg, logger, pipeline, history)
	router := httpapi.NewRouter(app, country)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
