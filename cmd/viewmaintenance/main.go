package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/staffmatch/internal/eligibility/consumer"
	"github.com/example/staffmatch/internal/eligibility/domain"
	"github.com/example/staffmatch/internal/eligibility/policy"
	"github.com/example/staffmatch/internal/eligibility/processor"
	"github.com/example/staffmatch/internal/eligibility/projection"
	"github.com/example/staffmatch/pkg/observability"
)

type appConfig struct {
	MetricsAddr    string
	RedisAddr      string
	NATSURL        string
	BookingSubject string
	CarerSubject   string
	QueueGroup     string
	RetentionHours int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("view-maintenance")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "view-maintenance")
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
		logger.Warn("no redis configured, projections held in memory")
		store = projection.NewMemoryStore()
	}

	natsConn, err := nats.Connect(cfg.NATSURL, nats.Name("viewmaintenance"))
	if err != nil {
		logger.Fatal("nats connect", zap.Error(err))
	}
	defer natsConn.Drain() //nolint:errcheck

	js, err := natsConn.JetStream()
	if err != nil {
		logger.Fatal("jetstream context", zap.Error(err))
	}
	if err := consumer.EnsureStream(js); err != nil {
		logger.Fatal("ensure stream", zap.Error(err))
	}

	engine := policy.NewEngine(policy.NewRandomEstimator(), policy.HashClassifier{})

	bookings := processor.NewBooking(store, engine, logger.Named("bookings"))
	carers := processor.NewCarer(store, engine, logger.Named("carers"))

	cons := consumer.New(js, bookings, carers, logger, consumer.Config{
		BookingSubject: cfg.BookingSubject,
		CarerSubject:   cfg.CarerSubject,
		QueueGroup:     cfg.QueueGroup,
	})
	unsubscribe, err := cons.Start(ctx)
	if err != nil {
		logger.Fatal("start consumer", zap.Error(err))
	}
	defer unsubscribe()

	ready := func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           observability.MetricsRouter(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func loadConfig() appConfig {
	return appConfig{
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		NATSURL:        getenv("NATS_URL", nats.DefaultURL),
		BookingSubject: getenv("BOOKING_SUBJECT", consumer.DefaultBookingSubject),
		CarerSubject:   getenv("CARER_SUBJECT", consumer.DefaultCarerSubject),
		QueueGroup:     getenv("QUEUE_GROUP", consumer.DefaultQueueGroup),
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
