package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"headshotpro/internal/bootstrap"
	"headshotpro/internal/infra"
)

// The worker expires generations left in processing past JOB_STALE_AFTER_MINUTES
// and refunds them. Run it with RUN_SWEEPER=false on the API replicas.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	svc, err := bootstrap.Build(ctx, cfg, logger, runner)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: wiring failed")
	}
	sweeper, err := bootstrap.NewSweeper(cfg, logger, svc)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: sweeper schedule invalid")
	}

	sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
	if n, err := sweeper.Sweep(sweepCtx); err != nil {
		logger.Error().Err(err).Msg("worker: initial sweep failed")
	} else {
		logger.Info().Int("expired", n).Msg("worker: initial sweep done")
	}
	cancel()

	sweeper.Start()
	<-ctx.Done()
	logger.Info().Msg("worker: shutting down")
	<-sweeper.Stop().Done()
}
