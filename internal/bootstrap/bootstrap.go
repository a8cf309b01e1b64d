// Package bootstrap assembles the generation and ledger services from
// configuration. Both the API and the worker binaries share it.
package bootstrap

import (
	"context"
	"fmt"

	"headshotpro/internal/adapter/repo"
	"headshotpro/internal/generation"
	"headshotpro/internal/infra"
	"headshotpro/internal/infra/credentials"
	"headshotpro/internal/ledger"
	"headshotpro/internal/providers/replicate"
	v3 "headshotpro/internal/providers/v3"
	"headshotpro/internal/storage"
)

// Services is the wired object graph.
type Services struct {
	Jobs         *repo.GenerationRepositoryPG
	Users        *repo.UserRepositoryPG
	Ledger       *ledger.Service
	Credentials  *credentials.Store
	Store        storage.Store
	Finisher     *generation.Finisher
	Orchestrator *generation.Orchestrator
	// StaticDir is the root of the filesystem store, empty for object storage.
	StaticDir string
}

// NewStore picks the re-hosting backend named by cfg.StorageDriver.
func NewStore(ctx context.Context, cfg *infra.Config) (storage.Store, string, error) {
	switch cfg.StorageDriver {
	case "s3":
		s, err := storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case "", "filesystem":
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.BasePath(), nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unsupported storage driver %q", cfg.StorageDriver)
	}
}

// Build wires repositories, the ledger, provider gateways and the
// orchestrator on top of sql.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger, sql infra.SQLExecutor) (*Services, error) {
	store, staticDir, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jobs := repo.NewGenerationRepository(sql)
	credits := ledger.NewService(ledger.Options{
		Store:              repo.NewCreditRepository(sql),
		Logger:             &logger,
		SignupBonusCredits: cfg.SignupBonusCredits,
	})
	creds := credentials.NewStore(sql, map[string]string{
		credentials.ProviderV3:        cfg.V3APIKey,
		credentials.ProviderReplicate: cfg.ReplicateAPIKey,
	})

	finOpts := generation.FinisherOptions{
		Jobs:   jobs,
		Rehost: &storage.Rehoster{Store: store, Logger: &logger},
		Cost:   cfg.GenerationCost,
		Logger: &logger,
	}
	if cfg.RefundFailedGenerations {
		finOpts.Refunds = credits
	}
	finisher := generation.NewFinisher(finOpts)

	v3Key, err := creds.APIKey(ctx, credentials.ProviderV3)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: v3 key: %w", err)
	}
	replicateKey, err := creds.APIKey(ctx, credentials.ProviderReplicate)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: replicate key: %w", err)
	}

	v3Client := v3.NewClient(v3.Options{
		APIKey:         v3Key,
		BaseURL:        cfg.V3BaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.ProviderTimeout,
	})
	replicateClient := replicate.NewClient(replicate.Options{
		APIKey:  replicateKey,
		BaseURL: cfg.ReplicateBaseURL,
		Logger:  &logger,
	})

	gateways := map[string]*generation.Gateway{
		v3.ProviderID: generation.NewGateway(generation.GatewayOptions{
			Provider:   v3Client,
			Jobs:       jobs,
			Finisher:   finisher,
			Timeout:    cfg.ProviderTimeout,
			StaleAfter: cfg.JobStaleAfter,
			Logger:     &logger,
		}),
		replicate.ProviderID: generation.NewGateway(generation.GatewayOptions{
			Provider:   replicateClient,
			Jobs:       jobs,
			Finisher:   finisher,
			Timeout:    replicateClient.MaxDuration(),
			StaleAfter: cfg.JobStaleAfter,
			Logger:     &logger,
		}),
	}
	if _, ok := gateways[cfg.DefaultProvider]; !ok {
		return nil, fmt.Errorf("bootstrap: unknown default provider %q", cfg.DefaultProvider)
	}

	orch := generation.NewOrchestrator(generation.OrchestratorOptions{
		Gateways:        gateways,
		DefaultProvider: cfg.DefaultProvider,
		Jobs:            jobs,
		Ledger:          credits,
		Finisher:        finisher,
		Cost:            cfg.GenerationCost,
		StaleAfter:      cfg.JobStaleAfter,
		Logger:          &logger,
	})

	for id, ok := range orch.Providers() {
		logger.Info().Str("provider", id).Bool("configured", ok).Msg("bootstrap: provider registered")
	}

	return &Services{
		Jobs:         jobs,
		Users:        repo.NewUserRepository(sql),
		Ledger:       credits,
		Credentials:  creds,
		Store:        store,
		Finisher:     finisher,
		Orchestrator: orch,
		StaticDir:    staticDir,
	}, nil
}

// NewSweeper builds the stale-job sweeper over svc.
func NewSweeper(cfg *infra.Config, logger infra.Logger, svc *Services) (*generation.Sweeper, error) {
	return generation.NewSweeper(generation.SweeperOptions{
		Jobs:       svc.Jobs,
		Finisher:   svc.Finisher,
		StaleAfter: cfg.JobStaleAfter,
		Schedule:   cfg.StaleSweepSchedule,
		Logger:     &logger,
	})
}
