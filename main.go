package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"content-gate/config"
	"content-gate/database"
	adminapi "content-gate/internal/api/admin"
	contentapi "content-gate/internal/api/content"
	plansapi "content-gate/internal/api/plans"
	previewapi "content-gate/internal/api/preview"
	stripewebhooks "content-gate/internal/api/stripewebhook"
	usersapi "content-gate/internal/api/users"
	routes "content-gate/internal/app/http"
	"content-gate/internal/domain/access"
	"content-gate/internal/infra/audit"
	"content-gate/internal/infra/roles"
	"content-gate/internal/infra/watchtime"
)

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// connectRedis returns nil when no address is configured or the server does
// not answer; the gate then runs without role caching and preview ledger.
func connectRedis(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		logger.Warn("REDIS_ADDR not set; role cache and preview ledger disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("redis unreachable; role cache and preview ledger disabled", slog.String("addr", addr), slog.Any("error", err))
		_ = client.Close()
		return nil
	}
	return client
}

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	logger := newLogger(config.LOG_FORMAT)
	slog.SetDefault(logger)

	db := database.InitDB(config.DB_URL)
	rdb := connectRedis(context.Background(), config.REDIS_ADDR, logger)

	var resolver access.RoleResolver = roles.NewUserRoleStore(db)
	var invalidator adminapi.RoleInvalidator
	if rdb != nil {
		cache := roles.NewCache(resolver, rdb, config.ROLE_CACHE_TTL, logger)
		resolver = cache
		invalidator = cache
	}

	auditStore := audit.NewStore(db)
	sink := audit.NewAsyncSink(auditStore, config.AUDIT_BUFFER_SIZE, logger)
	engine := access.NewEngine(resolver, sink, access.WithLogger(logger))
	messages := access.NewFormatter(config.LOGIN_URL, config.UPGRADE_URL)
	secret := []byte(config.JWT_SECRET)

	deps := routes.Deps{
		Engine:    engine,
		JWTSecret: secret,
		Content:   contentapi.NewHandler(engine, messages, config.PREVIEW_CEILING_SECONDS),
		Admin:     adminapi.NewHandler(db, auditStore, invalidator, logger),
		Plans:     plansapi.NewHandler(db, config.STRIPE_SECRET_KEY, config.STRIPE_PRODUCT_ID, logger),
		Users:     usersapi.NewHandler(db, engine, config.PREVIEW_CEILING_SECONDS, logger),
		Webhook:   stripewebhooks.NewHandler(db, config.STRIPE_WEBHOOK_SECRET, invalidator, logger),
	}
	if rdb != nil {
		ledger := watchtime.NewLedger(rdb, config.PREVIEW_CEILING_SECONDS)
		deps.Preview = previewapi.NewHandler(engine, ledger, messages, secret, logger)
	}

	r := gin.Default()

	// CORS before routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: ":" + config.PORT, Handler: r}
	go func() {
		logger.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	if err := sink.Close(ctx); err != nil {
		logger.Warn("audit sink did not drain", slog.Any("error", err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
