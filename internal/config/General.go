package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/asaskevich/govalidator"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/rs/zerolog/log"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// StoreBackend selects where the ledger is persisted.
	StoreBackend string
	// BadgerDir is the data directory of the embedded store.
	BadgerDir string

	// DBHost, DBPort, DBUser, DBPassword, DBName and DBSSLMode describe the Postgres store.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// WebPort is the port of the HTTP API.
	WebPort string
	// JWTSecret signs and verifies caller identity tokens.
	JWTSecret string
	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	RateLimitRPS   float64
	RateLimitBurst int

	// AdminAddress becomes admin of the vault and the event at genesis.
	AdminAddress types.Address
	// DevAddress receives the vault's dev skim.
	DevAddress types.Address
	// SuperAdminAddress may grant vault allowances once governance opens. Optional.
	SuperAdminAddress types.Address
	// GenesisBalances are minted by the genesis block, e.g. the native currency contributors
	// bring to the event. Optional.
	GenesisBalances []types.Allocation
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Only the genesis addresses and the JWT secret are required; everything else has a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendPostgres))
	switch StoreBackend {
	case BackendPostgres, BackendBadger, BackendMemory:
	default:
		return errors.New("environment variable STORE_BACKEND must be one of postgres, badger, memory, got: " + StoreBackend)
	}
	BadgerDir = getEnvOrDefault("BADGER_DIR", "./data/ledger")

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	DBPort, err = getEnvAsIntOrDefault("DB_PORT", 5432)
	if err != nil {
		return err
	}
	DBUser = os.Getenv("DB_USER")
	DBPassword = os.Getenv("DB_PASSWORD")
	DBName = os.Getenv("DB_NAME")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	if StoreBackend == BackendPostgres && (DBUser == "" || DBName == "") {
		return errors.New("environment variables DB_USER and DB_NAME are required for the postgres store")
	}

	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	JWTSecret, err = getEnv("JWT_SECRET")
	if err != nil {
		return err
	}
	RateLimitRPS, err = getEnvAsFloat64OrDefault("RATE_LIMIT_RPS", 20)
	if err != nil {
		return err
	}
	RateLimitBurst, err = getEnvAsIntOrDefault("RATE_LIMIT_BURST", 40)
	if err != nil {
		return err
	}

	if AdminAddress, err = getEnvAsAddress("ADMIN_ADDRESS"); err != nil {
		return err
	}
	if DevAddress, err = getEnvAsAddress("DEV_ADDRESS"); err != nil {
		return err
	}
	if raw := os.Getenv("SUPER_ADMIN_ADDRESS"); raw != "" {
		if SuperAdminAddress, err = types.ParseAddress(raw); err != nil {
			return err
		}
	}

	if GenesisBalances, err = getEnvAsAllocations("GENESIS_BALANCES"); err != nil {
		return err
	}

	// Expand the tilde (~) in the badger directory path to the user's home directory.
	if strings.HasPrefix(BadgerDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		BadgerDir = filepath.Join(home, BadgerDir[2:])
	}

	log.Debug().
		Str("StoreBackend", StoreBackend).
		Str("WebPort", WebPort).
		Str("Admin", AdminAddress.String()).
		Int("GenesisBalances", len(GenesisBalances)).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOrDefault(key, fallback string) string {
	if value, err := getEnv(key); err == nil {
		return value
	}
	return fallback
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsIntOrDefault(key string, fallback int) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if set but invalid.
func getEnvAsFloat64OrDefault(key string, fallback float64) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive float64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsAddress retrieves a required environment variable as a hex address.
func getEnvAsAddress(key string) (types.Address, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return "", err
	}
	addr, err := types.ParseAddress(valueStr)
	if err != nil {
		return "", errors.New("environment variable " + key + " must be a hex address, got: " + valueStr)
	}
	return addr, nil
}

// getEnvAsAllocations parses an optional comma separated list of denom:address:amount entries,
// amounts in base units. Each (denom, address) pair may appear once.
func getEnvAsAllocations(key string) ([]types.Allocation, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return nil, nil
	}
	var allocations []types.Allocation
	seen := make(map[string]bool)
	for _, entry := range strings.Split(valueStr, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, errors.New("environment variable " + key + " entries must be denom:address:amount, got: " + entry)
		}
		denom, rawAddr, rawAmount := parts[0], parts[1], parts[2]
		if denom == "" || !govalidator.IsPrintableASCII(denom) || strings.ContainsAny(denom, " ,") {
			return nil, errors.New("environment variable " + key + " has an invalid denom in: " + entry)
		}
		addr, err := types.ParseAddress(rawAddr)
		if err != nil {
			return nil, errors.New("environment variable " + key + " has an invalid address in: " + entry)
		}
		if !govalidator.IsNumeric(rawAmount) {
			return nil, errors.New("environment variable " + key + " amounts must be base-unit integers, got: " + entry)
		}
		amount, ok := sdkmath.NewIntFromString(rawAmount)
		if !ok || !amount.IsPositive() {
			return nil, errors.New("environment variable " + key + " amounts must be positive, got: " + entry)
		}
		id := denom + "/" + addr.String()
		if seen[id] {
			return nil, errors.New("environment variable " + key + " lists " + denom + " for " + addr.String() + " twice")
		}
		seen[id] = true
		allocations = append(allocations, types.Allocation{Denom: denom, Address: addr, Amount: amount})
	}
	return allocations, nil
}
