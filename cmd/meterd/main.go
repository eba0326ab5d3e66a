package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/HanKun113/AN6007-dic/db"
	"github.com/HanKun113/AN6007-dic/internal/api"
	"github.com/HanKun113/AN6007-dic/internal/config"
	"github.com/HanKun113/AN6007-dic/internal/datadog"
	"github.com/HanKun113/AN6007-dic/internal/env"
	"github.com/HanKun113/AN6007-dic/internal/logging"
	"github.com/HanKun113/AN6007-dic/internal/meters"
	"github.com/HanKun113/AN6007-dic/internal/notifications"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)
	env.Cfg = &cfg

	log.Info().
		Str("db_file", cfg.DBFile).
		Int("port", cfg.Port).
		Msg("Starting smart meter simulation service")

	if err := os.MkdirAll(filepath.Dir(cfg.DBFile), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	dbConn, err := db.Open(cfg.DBFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer dbConn.Close()

	simTime, err := db.GetSimTime(dbConn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read simulation clock")
	}
	log.Info().Str("sim_time", simTime.Format("2006-01-02 15:04:05")).Msg("Simulation clock loaded")

	datadog.InitMetrics()
	notifications.Init()

	gen := meters.NewGenerator(dbConn, cfg.ReadingIntervalMinutes, cfg.RetentionMonths)
	server := api.NewServer(dbConn, gen, &cfg)

	if err := server.Start(cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("HTTP server stopped")
	}
}
