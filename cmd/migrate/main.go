package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"headshotpro/internal/infra"
	"headshotpro/migrations"
)

func main() {
	var command string
	flag.StringVar(&command, "cmd", "up", "Migration command (up, down, version, force)")
	flag.Parse()

	_ = godotenv.Load()
	logger := infra.NewLogger(os.Getenv("APP_ENV"))

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("migrate: DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: open database")
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: postgres driver")
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: load migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: init")
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("migrate: up failed")
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("migrate: down failed")
		}
	case "version":
	case "force":
		v, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			logger.Fatal().Str("arg", flag.Arg(0)).Msg("migrate: force needs a version number")
		}
		if err := m.Force(v); err != nil {
			logger.Fatal().Err(err).Msg("migrate: force failed")
		}
	default:
		logger.Fatal().Str("cmd", command).Msg("migrate: unknown command (use up, down, version, force)")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatal().Err(err).Msg("migrate: read version")
	}
	logger.Info().Str("cmd", command).Uint("version", version).Bool("dirty", dirty).Msg("migrate: done")
}
