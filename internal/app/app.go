// Package app wires together all dependencies and runs the auth service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/marshaltudu14/fieldforce-auth/internal/boundary"
	"github.com/marshaltudu14/fieldforce-auth/internal/config"
	"github.com/marshaltudu14/fieldforce-auth/internal/event"
	handler "github.com/marshaltudu14/fieldforce-auth/internal/handler/http"
	"github.com/marshaltudu14/fieldforce-auth/internal/repository/postgres"
	redisrepo "github.com/marshaltudu14/fieldforce-auth/internal/repository/redis"
	"github.com/marshaltudu14/fieldforce-auth/internal/service"
	"github.com/marshaltudu14/fieldforce-auth/migrations"
	"github.com/marshaltudu14/fieldforce-auth/pkg/database"
	"github.com/marshaltudu14/fieldforce-auth/pkg/health"
	pkgkafka "github.com/marshaltudu14/fieldforce-auth/pkg/kafka"
	"github.com/marshaltudu14/fieldforce-auth/pkg/middleware"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
	"github.com/marshaltudu14/fieldforce-auth/pkg/tracing"
)

// App holds the running service and everything it must tear down.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "auth",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		Enabled:        cfg.Environment != "development",
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	tokenService := token.NewService(cfg.JWTSecret, cfg.AccessTokenTTL)
	employeeRepo := postgres.NewEmployeeRepository(pool)
	refreshRepo := postgres.NewRefreshTokenRepository(pool)
	denyList := redisrepo.NewRevocationList(redisClient)
	auditor := event.NewAuditor(producer, logger)
	authService := service.NewAuthService(
		employeeRepo, refreshRepo, denyList, tokenService, auditor, logger, cfg.RefreshTokenTTL,
	)

	classifier := boundary.NewClassifier(boundary.ClassifierConfig{
		WebOrigins: cfg.WebOrigins,
		AppToken:   cfg.MobileAppToken,
	})
	loginLimiter := boundary.NewLoginRateLimiter(rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterDeps{
		AuthService:   authService,
		TokenService:  tokenService,
		Classifier:    classifier,
		LoginLimiter:  loginLimiter,
		Auditor:       auditor,
		HealthHandler: healthHandler,
		Logger:        logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.WebOrigins,
			Environment:    cfg.Environment,
		},
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops all components in dependency order: drain HTTP first, then
// flush spans, then close the producer and the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
