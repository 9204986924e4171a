package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elys-network/lgevault/internal/app"
	"github.com/elys-network/lgevault/internal/config"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type flags struct {
	mode           string
	listen         string
	store          string
	keeperInterval time.Duration
	logFormat      string
	address        string
	tokenTTL       time.Duration
}

func parseFlags() flags {
	var f flags
	pflag.StringVar(&f.mode, "mode", "serve", "serve | migrate | reset | token")
	pflag.StringVar(&f.listen, "listen", "", "HTTP port, overrides WEB_PORT")
	pflag.StringVar(&f.store, "store", "", "postgres | badger | memory, overrides STORE_BACKEND")
	pflag.DurationVar(&f.keeperInterval, "keeper-interval", 0, "run massUpdatePools on this interval, 0 disables")
	pflag.StringVar(&f.logFormat, "log-format", os.Getenv("LOG_FORMAT"), "console | json")
	pflag.StringVar(&f.address, "address", "", "caller address for --mode token")
	pflag.DurationVar(&f.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of tokens issued by --mode token")
	pflag.Parse()
	return f
}

// main is the entry point for the ledger service.
func main() {
	f := parseFlags()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}
	if f.store != "" {
		os.Setenv("STORE_BACKEND", f.store)
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if f.listen != "" {
		config.WebPort = f.listen
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"), f.logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch f.mode {
	case "serve":
		err = serve(ctx, f)
	case "migrate", "reset":
		err = migrate(ctx, f.mode == "reset")
	case "token":
		err = issueToken(f)
	default:
		err = fmt.Errorf("unknown mode %q", f.mode)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", f.mode).Msg("Exiting")
	}
}

// openStore opens the configured backend. Postgres schemas are migrated on open.
func openStore(ctx context.Context) (state.Store, error) {
	switch config.StoreBackend {
	case config.BackendPostgres:
		pg, err := state.OpenPostgres(ctx, postgresConfig())
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case config.BackendBadger:
		return state.OpenBadger(config.BadgerDir)
	default:
		log.Warn().Msg("Using the in-memory store; the ledger is lost on exit")
		return state.NewMemoryStore(), nil
	}
}

func postgresConfig() state.DBConfig {
	return state.DBConfig{
		Host:     config.DBHost,
		Port:     config.DBPort,
		User:     config.DBUser,
		Password: config.DBPassword,
		DBName:   config.DBName,
		SSLMode:  config.DBSSLMode,
	}
}

func serve(ctx context.Context, f flags) error {
	log.Info().Str("store", config.StoreBackend).Msg("Ledger service starting...")

	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	a, err := app.New(app.Config{Store: store, Params: config.DefaultParameters})
	if err != nil {
		return err
	}
	if _, err := a.InitGenesis(ctx, app.Genesis{
		Admin:      config.AdminAddress,
		Dev:        config.DevAddress,
		SuperAdmin: config.SuperAdminAddress,
		Balances:   config.GenesisBalances,
	}); err != nil {
		return err
	}

	webServer := web.NewWebServer(web.Config{
		Port:           config.WebPort,
		JWTSecret:      config.JWTSecret,
		RateLimitRPS:   config.RateLimitRPS,
		RateLimitBurst: config.RateLimitBurst,
	}, a)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting ledger API")
		return webServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return webServer.Shutdown(shutdownCtx)
	})
	if f.keeperInterval > 0 {
		g.Go(func() error {
			return a.RunKeeper(gctx, f.keeperInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("Ledger service stopped")
	return nil
}

// migrate applies, or with reset wipes and reapplies, the Postgres schema.
func migrate(ctx context.Context, reset bool) error {
	if config.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrations apply to the postgres store only, STORE_BACKEND is %q", config.StoreBackend)
	}
	pg, err := state.OpenPostgres(ctx, postgresConfig())
	if err != nil {
		return err
	}
	defer pg.Close()

	if reset {
		log.Warn().Str("dbname", config.DBName).Msg("Resetting the ledger database")
		return pg.ResetSchema()
	}
	return pg.EnsureSchema()
}

// issueToken prints a bearer token naming --address as the API caller.
func issueToken(f flags) error {
	addr, err := types.ParseAddress(f.address)
	if err != nil {
		return err
	}
	tok, err := web.IssueToken([]byte(config.JWTSecret), addr, f.tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
