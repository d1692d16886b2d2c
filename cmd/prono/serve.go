package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	v1 "github.com/gosuda/prono/internal/api/v1"
	"github.com/gosuda/prono/internal/auth"
	"github.com/gosuda/prono/internal/config"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server"
	"github.com/gosuda/prono/internal/store/memory"
	"github.com/gosuda/prono/internal/store/postgres"
	redisstore "github.com/gosuda/prono/internal/store/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reference HTTP and live-channel server",
		Long: `Run the reference server.

Storage is in memory unless PRONO_DB_DSN is set; room fan-out is in process
unless PRONO_REDIS_ADDR is set. PRONO_JWT_SECRET is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	logFile, err := setupLogging(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	defer logFile.Close()

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, closeBroker, err := openBroker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeBroker()

	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	if cfg.Seed.Username != "" {
		if err := authSvc.EnsureUser(ctx, cfg.Seed.Username, cfg.Seed.Password); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		log.Info().Str("username", cfg.Seed.Username).Msg("seed user ready")
	}

	srv := server.New(ctx, cfg, store, broker, authSvc)

	go func() {
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (v1.DataStore, func(), error) {
	if cfg.DSN == "" {
		log.Info().Msg("using in-memory store")
		return memory.New(), func() {}, nil
	}

	if cfg.MaxConns < 0 || cfg.MaxConns > math.MaxInt32 {
		return nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.MaxConns)
	}

	store, err := postgres.New(ctx, cfg.DSN, int32(cfg.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	log.Info().Msg("using postgres store")
	return store, store.Close, nil
}

func openBroker(ctx context.Context, cfg config.RedisConfig) (domain.Broker, func(), error) {
	if cfg.Addr == "" {
		log.Info().Msg("using in-process broker")
		return memory.NewBroker(), func() {}, nil
	}

	broker, err := redisstore.New(ctx, cfg.Addr, cfg.Password, cfg.DB, "prono")
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("using redis broker")
	return broker, func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis broker")
		}
	}, nil
}
