package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aidin1998/accounts/api"
	"github.com/Aidin1998/accounts/internal/auth"
	"github.com/Aidin1998/accounts/internal/cache"
	"github.com/Aidin1998/accounts/internal/database"
	"github.com/Aidin1998/accounts/internal/identities"
	"github.com/Aidin1998/accounts/internal/identities/store"
	"github.com/Aidin1998/accounts/internal/infrastructure/config"
	"github.com/Aidin1998/accounts/internal/newsletter"
	"github.com/Aidin1998/accounts/internal/storage"
	"github.com/Aidin1998/accounts/pkg/logger"
	"github.com/joho/godotenv"
	limiter "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing {
		shutdown, err := initTracing()
		if err != nil {
			zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN,
		cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	go database.RecordPoolStats(ctx, db, cfg.Database.Driver, 30*time.Second)

	userStore := store.New(zapLogger, db)
	if err := userStore.Migrate(ctx); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	opts := api.Options{
		AllowOrigins: cfg.Server.AllowOrigins,
		RateLimit:    cfg.RateLimit,
		AvatarPath:   cfg.Storage.AvatarBaseURL,
	}

	var tokenCache identities.TokenCache
	if cfg.Redis.Enabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close()
		tokenCache = cache.NewTokenCache(client, cfg.Redis.TokenTTL)

		opts.LimiterStore, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "accounts:limiter",
			MaxRetry: 3,
		})
		if err != nil {
			zapLogger.Fatal("Failed to create rate limiter store", zap.Error(err))
		}
	}

	var notifier newsletter.Notifier = newsletter.NewLogNotifier(zapLogger)
	if cfg.Kafka.Enabled {
		notifier = newsletter.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NewsletterTopic)
	}
	defer notifier.Close()
	publisher := newsletter.NewPublisher(notifier, zapLogger, 5*time.Second)

	avatars, err := storage.NewLocal(cfg.Storage.AvatarDir, cfg.Storage.AvatarBaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to open avatar storage", zap.Error(err))
	}
	opts.Avatars = avatars.HTTP()

	accounts, err := identities.NewService(zapLogger, userStore, avatars, tokenCache)
	if err != nil {
		zapLogger.Fatal("Failed to create identities service", zap.Error(err))
	}

	if cfg.Bootstrap.OwnerEmail != "" {
		owner, _, err := accounts.Bootstrap(ctx, cfg.Bootstrap.OwnerEmail, cfg.Bootstrap.Organization)
		if err != nil {
			zapLogger.Fatal("Failed to bootstrap owner", zap.Error(err))
		}
		zapLogger.Info("Owner account ready", zap.Uint("user_id", owner.ID), zap.String("email", owner.Email))
	}

	authMiddleware := auth.NewMiddleware(zapLogger, accounts, userStore, auth.NewPermissions(cfg.RolePermissions))

	apiServer, err := api.NewServer(zapLogger, accounts, authMiddleware, publisher, opts)
	if err != nil {
		zapLogger.Fatal("Failed to create API server", zap.Error(err))
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Starting accounts API", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func initTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
