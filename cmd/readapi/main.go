package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/auth"
	"github.com/example/staffmatch/internal/eligibility/domain"
	"github.com/example/staffmatch/internal/eligibility/projection"
	"github.com/example/staffmatch/internal/http/middleware"
	"github.com/example/staffmatch/internal/readapi/handler"
	"github.com/example/staffmatch/internal/readapi/service"
	"github.com/example/staffmatch/pkg/observability"
)

type appConfig struct {
	HTTPAddr       string
	RedisAddr      string
	JWTSecret      string
	RateLimit      float64
	RateBurst      float64
	RetentionHours int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("read-api")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "read-api")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	cfg := loadConfig()

	var redisClient *redis.Client
	var store domain.ProjectionStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
		store = projection.NewRedisStore(redisClient, time.Duration(cfg.RetentionHours)*time.Hour)
	} else {
		logger.Warn("no redis configured, serving empty projections")
		store = projection.NewMemoryStore()
	}

	svc := service.New(store)
	api := handler.NewHTTP(svc)

	r := chi.NewRouter()
	limiter := middleware.NewRateLimiter(redisClient, middleware.RateConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	})
	if limiter != nil {
		r.Use(limiter.Middleware)
	}
	if cfg.JWTSecret != "" {
		r.Use(auth.Middleware(cfg.JWTSecret, "carer", "coordinator"))
	} else {
		logger.Warn("JWT_SECRET unset, endpoints are unauthenticated")
	}
	r.Mount("/", api.Router())

	ready := func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}

	root := chi.NewRouter()
	root.Mount("/observability", observability.MetricsRouter(ready))
	root.Mount("/", r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("read api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RateLimit:      parseFloatEnv("RATE_LIMIT_RPS", 0),
		RateBurst:      parseFloatEnv("RATE_LIMIT_BURST", 0),
		RetentionHours: parseIntEnv("PROJECTION_RETENTION_HOURS", 24),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
