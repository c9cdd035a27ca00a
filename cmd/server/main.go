package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"music.mint/config"
	"music.mint/internal/api"
	"music.mint/internal/logging"
	"music.mint/internal/media"
	"music.mint/internal/registry"
	"music.mint/internal/store"
	"music.mint/internal/upload"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", logging.Error(err))
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := initStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	uploads, err := upload.NewReceiver(cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	if err != nil {
		return err
	}

	mints := registry.New(ctx, st, logger)
	composer := media.NewComposer(media.Options{
		Binary:       cfg.Media.FFmpeg,
		AudioBitrate: cfg.Media.AudioBitrate,
		Timeout:      cfg.Media.Timeout,
	}, logger)

	router, err := api.SetupRouter(api.Deps{
		Registry: mints,
		Composer: composer,
		Uploads:  uploads,
		Logger:   logger,
	}, cfg)
	if err != nil {
		return err
	}

	// No write timeout: create-mint holds the connection while ffmpeg runs.
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting",
		logging.String("addr", cfg.Addr()),
		logging.String("public_url", cfg.Server.PublicURL),
		logging.String("store", cfg.Store.Type),
		logging.String("uploads", uploads.Dir()),
		logging.Int("mints", mints.Len()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func initStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case config.StoreRedis:
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Store.Redis.Key)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return st, nil
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		st, err := store.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot %s: %w", cfg.Store.Path, err)
		}
		return st, nil
	}
}
