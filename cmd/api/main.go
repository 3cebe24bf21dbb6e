package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/svroyal/concierge/internal/config"
	"github.com/svroyal/concierge/internal/detect"
	"github.com/svroyal/concierge/internal/handler"
	"github.com/svroyal/concierge/internal/intent"
	"github.com/svroyal/concierge/internal/model/chat"
	"github.com/svroyal/concierge/internal/model/gazetteer"
	"github.com/svroyal/concierge/internal/service/conversation"
	"github.com/svroyal/concierge/internal/service/remote"
	"github.com/svroyal/concierge/internal/service/session"
	"github.com/svroyal/concierge/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Fine in most deployments; the environment carries the config.
		utils.GetLogger().Debug("no .env file loaded", zap.Error(err))
	}

	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	persister, err := newPersister(cfg.Session, logger)
	if err != nil {
		logger.Fatal("failed to initialize session persistence", zap.Error(err))
	}

	store := session.NewStore(cfg.Hotel.WelcomeText, persister, logger)
	remoteClient := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)
	detector := detect.New(chat.LocationRef{
		Name:  cfg.Hotel.Name,
		Query: cfg.Hotel.MapQuery,
	}, gazetteer.NewMemoryStore(gazetteer.Seed()))

	convSvc := conversation.NewService(store, remoteClient, detector, intent.Default, cfg.Hotel.ContactPhone, logger)

	router := handler.NewRouter(convSvc, store, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func newPersister(cfg config.SessionConfig, logger *zap.Logger) (session.Persister, error) {
	switch cfg.Backend {
	case "file":
		logger.Info("using file session persistence", zap.String("dir", cfg.StateDir))
		return session.NewFilePersister(cfg.StateDir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		logger.Info("using redis session persistence",
			zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.TTL))
		return session.NewRedisPersister(client, cfg.TTL), nil
	default:
		logger.Info("using in-memory session persistence")
		return session.NewMemoryPersister(), nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("concierge gateway listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
