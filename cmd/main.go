package main

import (
	"bookstore/cache"
	"bookstore/config"
	"bookstore/controllers"
	"bookstore/database"
	"bookstore/logger"
	"bookstore/middleware"
	"bookstore/repository"
	"bookstore/routes"
	"bookstore/services"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	os.Exit(exitCode(zl, run(cfg, zl)))
}

// exitCode logs a fatal run error and flushes the logger before the process
// exits, since os.Exit skips deferred calls.
func exitCode(zl *zap.Logger, err error) int {
	defer func() { _ = zl.Sync() }()
	if err != nil {
		zl.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*repository.Store, error) {
	if cfg.StoreDriver == "memory" {
		zl.Warn("using in-memory store, data will not survive a restart")
		return repository.NewMemoryStore(), nil
	}

	client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	zl.Info("connected to MongoDB", zap.String("db", cfg.DBName))
	return repository.NewMongoStore(client, db), nil
}

func openBookCache(ctx context.Context, cfg *config.Config, zl *zap.Logger) (cache.BookCache, func()) {
	if cfg.RedisURL == "" {
		return cache.Nop{}, func() {}
	}
	client, err := cache.Dial(ctx, cfg.RedisURL)
	if err != nil {
		zl.Warn("book cache disabled", zap.Error(err))
		return cache.Nop{}, func() {}
	}
	zl.Info("book listing cache enabled", zap.Duration("ttl", cfg.BookCacheTTL))
	return cache.NewRedisBookCache(client, cfg.BookCacheTTL), func() { _ = client.Close() }
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	store, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	bookCache, closeCache := openBookCache(ctx, cfg, zl)
	defer closeCache()

	authService := services.NewAuthService(store.Users, store.Tokens, cfg.JWTSecret, cfg.TokenTTL)
	bookService := services.NewBookService(store.Books, bookCache, zl.Named("books"))
	orderService := services.NewOrderService(store.Books, store.Orders, store.Users, bookService)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			zl.Info("admin account created", zap.String("email", cfg.AdminEmail))
		}
	}

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	router := routes.NewRouter(routes.Dependencies{
		Auth:        controllers.NewAuthController(authService, zl),
		Books:       controllers.NewBookController(bookService, zl),
		Orders:      controllers.NewOrderController(orderService, zl),
		Verifier:    authService,
		AuthLimiter: limiter,
		Store:       store,
		Log:         zl,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
