package main

import (
	"context"
	"os"
	"strconv"

	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Wipes the Postgres ledger and reapplies the migrations. Needs only the DB_* variables, so it
// works against a database the service cannot start on.
func main() {
	// Initialize logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Initialize(logLevel, os.Getenv("LOG_FORMAT"))
	log.Info().Msg("Starting ledger database reset script...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	dbCfg := state.DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     5432,
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
		DSN:      os.Getenv("DATABASE_URL"),
	}
	if dbCfg.Host == "" {
		dbCfg.Host = "localhost"
	}
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Fatal().Str("DB_PORT", portStr).Msg("DB_PORT must be an integer")
		}
		dbCfg.Port = port
	}
	if dbCfg.DSN == "" && (dbCfg.User == "" || dbCfg.DBName == "") {
		log.Fatal().Msg("DB_USER and DB_NAME (or DATABASE_URL) must be set.")
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	store, err := state.OpenPostgres(context.Background(), dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer store.Close()

	if err := store.ResetSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to reset ledger schema")
	}
	log.Info().Msg("Ledger database reset complete!")
}
