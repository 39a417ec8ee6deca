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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mightybites/coins-engine/internal/api"
	"github.com/mightybites/coins-engine/internal/infra/fcm"
	"github.com/mightybites/coins-engine/internal/infra/logging"
	"github.com/mightybites/coins-engine/internal/infra/pgutils"
	"github.com/mightybites/coins-engine/internal/infra/rediscache"
	"github.com/mightybites/coins-engine/internal/services/draw"
	"github.com/mightybites/coins-engine/pkg/envconf"
	"github.com/mightybites/coins-engine/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database")
		return dbConns.Close()
	})

	var cache *rediscache.Cache

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		_, err = rdb.Ping(ctx).Result()
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		shutdownqueue.Add(func(context.Context) error {
			slog.Info("Close redis")
			return rdb.Close()
		})

		cache = rediscache.New(rdb)
	} else {
		slog.Warn("REDIS_ADDR empty, wallet cache disabled")
	}

	var notifier draw.Notifier

	if cfg.FCMServiceAccountB64 != "" {
		fcmClient, err := fcm.New(cfg.FCMServiceAccountB64)
		if err != nil {
			return fmt.Errorf("init fcm: %w", err)
		}

		notifier = fcmClient
	} else {
		slog.Warn("FCM service account empty, push notifications disabled")
	}

	// --- HTTP server ---
	handler := api.NewHandler(dbConns, notifier, cache)
	srv := api.NewServer(cfg.Port, handler)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
