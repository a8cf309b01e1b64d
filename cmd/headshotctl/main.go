package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"headshotpro/internal/adapter/repo"
	"headshotpro/internal/infra"
	"headshotpro/internal/infra/credentials"
	"headshotpro/internal/ledger"
)

const (
	flagDatabaseURL      = "database-url"
	configKeyDatabaseURL = "database_url"
)

// backend opens the stores a command needs. Tests swap in memory stores.
type backend interface {
	Ledger(ctx context.Context) (*ledger.Service, error)
	Credentials(ctx context.Context) (*credentials.Store, error)
	Close()
}

type pgBackend struct {
	v      *viper.Viper
	logger infra.Logger
	pool   *pgxpool.Pool
}

func (b *pgBackend) connect(ctx context.Context) (*infra.SQLRunner, error) {
	if b.pool == nil {
		dsn := strings.TrimSpace(b.v.GetString(configKeyDatabaseURL))
		if dsn == "" {
			return nil, fmt.Errorf("database url is required (--%s or DATABASE_URL)", flagDatabaseURL)
		}
		pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dsn, DBMaxConns: 2})
		if err != nil {
			return nil, err
		}
		b.pool = pool
	}
	return infra.NewSQLRunner(b.pool, b.logger), nil
}

func (b *pgBackend) Ledger(ctx context.Context) (*ledger.Service, error) {
	runner, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.NewService(ledger.Options{
		Store:              repo.NewCreditRepository(runner),
		Logger:             &b.logger,
		SignupBonusCredits: b.v.GetInt64("signup_bonus_credits"),
	}), nil
}

func (b *pgBackend) Credentials(ctx context.Context) (*credentials.Store, error) {
	runner, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(runner, nil), nil
}

func (b *pgBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

func main() {
	_ = godotenv.Load()

	v := viper.New()
	b := &pgBackend{v: v, logger: infra.NewLogger(os.Getenv("APP_ENV"))}
	defer b.Close()

	cmd := newRootCommand(v, b)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "headshotctl: %v\n", err)
		b.Close()
		os.Exit(1)
	}
}
