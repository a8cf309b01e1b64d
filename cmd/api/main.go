package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"headshotpro/internal/bootstrap"
	"headshotpro/internal/generation"
	"headshotpro/internal/http/handlers"
	httpapi "headshotpro/internal/http/httpapi"
	"headshotpro/internal/infra"
	"headshotpro/internal/infra/geoip"
	"headshotpro/internal/infra/google"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	svc, err := bootstrap.Build(ctx, cfg, logger, runner)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}

	var sweeper *generation.Sweeper
	if cfg.RunSweeper {
		sweeper, err = bootstrap.NewSweeper(cfg, logger, svc)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule sweeper")
		}
		sweeper.Start()
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	app := &handlers.App{
		Generations: svc.Orchestrator,
		Credits:     svc.Ledger,
		Users:       svc.Users,
		JWTSecret:   cfg.JWTSecret,
		Ping:        dbpool.Ping,
		Logger:      logger,
	}
	if cfg.GoogleClientID != "" {
		app.GoogleVerifier = google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID)
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		JWTSecret:       cfg.JWTSecret,
		InternalToken:   cfg.InternalAPIToken,
		CORSOrigins:     cfg.CORSOrigins,
		DefaultLocale:   "en",
		CountryLookup:   geo.Lookup(),
		SubmitPerMinute: cfg.RateLimitPerMin,
		StaticDir:       svc.StaticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
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
	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	// Detached provider calls finish their terminal write before the pool closes.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout+10*time.Second)
	defer drainCancel()
	if err := svc.Orchestrator.Wait(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("generations still running at shutdown")
	}
	logger.Info().Msg("server stopped")
}
