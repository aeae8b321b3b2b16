package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tour/internal/config"
	"github.com/noah-isme/backend-tour/internal/db"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "backend-tour-migrate").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrator")
	}
	defer func() { _, _ = m.Close() }()

	if *down > 0 {
		if err := db.Down(m, *down); err != nil {
			logger.Fatal().Err(err).Int("steps", *down).Msg("roll back migrations")
		}
		logger.Info().Int("steps", *down).Msg("migrations rolled back")
		return
	}
	if err := db.Up(m); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	version, dirty, err := m.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("read schema version")
		return
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}
