package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/chatsync/config"
	"github.com/d60-Lab/chatsync/internal/api/handler"
	"github.com/d60-Lab/chatsync/internal/api/middleware"
	"github.com/d60-Lab/chatsync/internal/api/router"
	"github.com/d60-Lab/chatsync/internal/cache"
	"github.com/d60-Lab/chatsync/internal/media"
	"github.com/d60-Lab/chatsync/internal/ratelimit"
	"github.com/d60-Lab/chatsync/internal/realtime"
	"github.com/d60-Lab/chatsync/internal/repository"
	"github.com/d60-Lab/chatsync/internal/service"
	"github.com/d60-Lab/chatsync/pkg/database"
	"github.com/d60-Lab/chatsync/pkg/logger"
	"github.com/d60-Lab/chatsync/pkg/redisx"
	"github.com/d60-Lab/chatsync/pkg/tracing"
)

// @title chatsync API
// @version 1.0
// @description 一对一聊天、通知、群组与短视频内容服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	rdb, err := redisx.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// 限流存储：单实例用内存，多实例用 redis
	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "redis":
		store = ratelimit.NewRedisStore(rdb, "")
	default:
		mem := ratelimit.NewMemoryStore()
		mem.StartJanitor(ctx, time.Minute)
		store = mem
	}
	policies, fallback, err := ratelimit.PoliciesFromConfig(cfg.RateLimit)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(store, policies, fallback)

	broker := realtime.NewBroker(rdb)
	profiles := cache.NewProfileCache(repository.NewUserRepository(db), rdb, cache.DefaultTTL)
	notifications := service.NewNotificationService(db, broker)

	dispatcher := service.NewDispatcher(notifications, limiter, cfg.Notify.QueueSize)
	stopDispatcher := dispatcher.Start(cfg.Notify.Workers)

	var ipLimiter *middleware.IPRateLimiter
	if cfg.Server.IPRatePerSecond > 0 {
		ipLimiter = middleware.NewIPRateLimiter(ctx, cfg.Server.IPRatePerSecond, cfg.Server.IPBurst)
	}

	h := handler.NewHandler(handler.Services{
		Chats:         service.NewChatService(db, profiles, broker, dispatcher),
		Users:         service.NewUserService(db, profiles),
		Search:        service.NewSearchService(db),
		Notifications: notifications,
		Groups:        service.NewGroupService(db, dispatcher),
		Posts:         service.NewPostService(db, dispatcher),
		Uploader:      media.NewCloudinaryClient(cfg.Media),
		Limiter:       limiter,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Setup(cfg, h, limiter, ipLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// 先停 HTTP 再排空通知队列
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("dispatcher drain", zap.Error(err), zap.Int("pending", dispatcher.QueueLen()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
