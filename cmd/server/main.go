package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/di"
	"github.com/aristath/vantage/internal/scheduler"
	"github.com/aristath/vantage/internal/server"
	"github.com/aristath/vantage/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(err, "Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	// Constitution validation is fail-fast: a misconfigured weighting
	// scheme must never start scoring
	constitution, err := config.LoadConstitution(cfg.ConstitutionPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load constitution")
	}
	log.Info().Str("version", constitution.Version).Msg("Constitution loaded")

	universeDB := mustOpen(log, database.Config{
		Path: cfg.DatabasePath("universe"), Profile: database.ProfileStandard, Name: "universe",
	}, database.UniverseSchema)
	portfolioDB := mustOpen(log, database.Config{
		Path: cfg.DatabasePath("portfolio"), Profile: database.ProfileLedger, Name: "portfolio",
	}, database.PortfolioSchema)
	historyDB := mustOpen(log, database.Config{
		Path: cfg.DatabasePath("history"), Profile: database.ProfileStandard, Name: "history",
	}, database.HistorySchema)
	defer func() {
		for _, db := range []*database.DB{historyDB, portfolioDB, universeDB} {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to close database")
			}
		}
	}()

	container := di.New(cfg, constitution, di.Databases{
		Universe:  universeDB,
		Portfolio: portfolioDB,
		History:   historyDB,
	}, log)

	sched := scheduler.New(log)
	if cfg.RefreshSchedule != "" {
		if err := sched.AddJob(cfg.RefreshSchedule, container.RefreshJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register score refresh job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		Container: container,
		Databases: []*database.DB{universeDB, portfolioDB, historyDB},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// mustOpen opens a database and applies its schema, exiting on failure
func mustOpen(log zerolog.Logger, cfg database.Config, schema string) *database.DB {
	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Name).Msg("Failed to open database")
	}
	if err := db.ApplySchema(schema); err != nil {
		log.Fatal().Err(err).Str("database", cfg.Name).Msg("Failed to apply schema")
	}
	return db
}

func fatal(err error, msg string) {
	l := zerolog.New(os.Stderr)
	l.Fatal().Err(err).Msg(msg)
}
