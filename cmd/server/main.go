package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/memedata/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/memedata/internal/observability/tracing"
	"github.com/aryan0dhankhar/memedata/internal/reliability/retry"
	"github.com/aryan0dhankhar/memedata/internal/server"
	"github.com/aryan0dhankhar/memedata/pkg/config"
	"github.com/aryan0dhankhar/memedata/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "memedata: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	log.Info("starting memedata server", slog.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "memedata", cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// 4. Connect to the database and migrate
	dbConfig := &database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}
	pool, err := retry.Do(ctx, nil, log, "database connect", func(ctx context.Context) (*database.ConnectionPool, error) {
		return database.NewConnectionPool(ctx, dbConfig, log)
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(dbConfig, log); err != nil {
		return err
	}

	// 5. Optional Redis revocation cache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = retry.Do(ctx, nil, log, "redis connect", func(ctx context.Context) (*redis.Client, error) {
			return redis.NewClient(ctx, cfg.RedisURL, log)
		})
		if err != nil {
			return err
		}
		defer redisClient.Close()
	} else {
		log.Info("REDIS_URL not set, revocation checks go straight to the database")
	}

	// 6. Wire the API
	srv, err := server.New(cfg, log, pool, server.Options{Redis: redisClient})
	if err != nil {
		return err
	}

	// 7. Bootstrap superusers
	if cfg.SuperuserPassword != "" {
		created, err := srv.Users().EnsureSuperusers(ctx, cfg.Superusers, cfg.SuperuserPassword)
		if err != nil {
			return fmt.Errorf("failed to bootstrap superusers: %w", err)
		}
		log.Info("superusers ensured", slog.Int("created", created), slog.Any("superusers", cfg.Superusers))
	}

	// 8. Start HTTP server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.String("addr", srv.Addr()),
			slog.String("db_driver", cfg.Database.Driver),
			slog.Bool("revocation_cache", redisClient != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// 9. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
	return nil
}
