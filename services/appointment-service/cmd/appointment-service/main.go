package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/handlers"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/loyalty"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/stats"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/validation"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "appointment-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("appointment service stopped", "err", err)
		os.Exit(1)
	}
}

// run owns every deferred shutdown; main exits only after it returns.
func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8080")
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return fmt.Errorf("missing database url: %w", err)
	}

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		return fmt.Errorf("db connection: %w", err)
	}
	defer pool.Close()

	rules, err := rulesFromEnv(pricing.DefaultRules())
	if err != nil {
		return fmt.Errorf("invalid pricing configuration: %w", err)
	}

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	store := storage.NewStore(pool, repo, outboxRepo)
	cat := catalog.Default()

	checks := []runtime.ReadyCheck{{Name: "postgres", Check: db.ReadyCheck(pool)}}

	probePaths := []string{"/ping", "/healthz", "/readyz"}
	var history pricing.LoyaltyLookup = repo
	var rateLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			logger.Warn("invalid REDIS_DB, using 0", "err", err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})

		ttl, err := config.Duration("LOYALTY_CACHE_TTL", 10*time.Minute)
		if err != nil {
			logger.Warn("invalid LOYALTY_CACHE_TTL, using default", "err", err)
		}
		history = loyalty.NewCache(repo, rdb, logger, loyalty.CacheConfig{TTL: ttl})

		perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
		if err != nil || perMinute <= 0 {
			perMinute = 120
		}
		rl := httpx.NewRedisRateLimiter(rdb, httpx.RateLimitOptions{
			Limit:    perMinute,
			Window:   time.Minute,
			Prefix:   config.String("RATE_LIMIT_PREFIX", "rl"),
			FailOpen: config.Bool("RATE_LIMIT_FAIL_OPEN", true),
			Exempt:   probePaths,
		})
		rateLimit = rl.Middleware(logger)
		logger.Info("redis enabled", "addr", addr, "rate_limit_per_minute", perMinute)
	} else {
		logger.Info("redis not configured; loyalty cache and rate limiting disabled")
	}

	brokers := config.String("KAFKA_BROKERS", "")
	checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers), Optional: true})

	pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		logger.Warn("invalid OUTBOX_POLL_INTERVAL, using default", "err", err)
	}
	batchSize, err := config.Int("OUTBOX_BATCH_SIZE", 50)
	if err != nil {
		logger.Warn("invalid OUTBOX_BATCH_SIZE, using default", "err", err)
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: pollEvery,
		BatchSize: batchSize,
	})
	go publisher.Run(ctx)

	projection := stats.NewProjection(pool, logger)
	if brokers != "" && config.Bool("STATS_CONSUMER_ENABLED", true) {
		groupID := config.String("STATS_CONSUMER_GROUP", service+"-stats")
		for _, topic := range stats.Topics {
			consumer := stats.NewConsumer(logger, stats.ConsumerConfig{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   topic,
			}, projection.Handle)
			go consumer.Run(ctx)
		}
		logger.Info("stats consumers started", "group_id", groupID, "topics", stats.Topics)
	}

	engine := pricing.NewEngine(cat, rules, history, repo, logger)
	validator := validation.New(cat, rules, validationConfigFromEnv())
	importer := legacy.NewImporter(nil, cat, logger, legacy.Config{})
	h := handlers.NewAppointmentHandler(store, engine, validator, importer, cat, logger)

	availabilityCfg, err := availabilityConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid availability configuration: %w", err)
	}
	slots := handlers.NewAvailabilityHandler(store, validator, availabilityCfg, logger)

	mux := runtime.NewBaseMux(checks...)
	mux.HandleFunc("/api/v1/appointments", h.Collection)
	mux.HandleFunc("/api/v1/appointments/item", h.Item)
	mux.HandleFunc("/api/v1/appointments/price", h.Price)
	mux.HandleFunc("/api/v1/quotes", h.Quote)
	mux.HandleFunc("/api/v1/imports/legacy", h.ImportLegacy)
	mux.HandleFunc("/api/v1/availability", slots.Slots)
	mux.HandleFunc("/api/v1/stats/daily", stats.NewHandler(projection, logger).Daily)

	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 4<<20)
	if err != nil || bodyLimit <= 0 {
		bodyLimit = 4 << 20
	}
	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		requestTimeout = 15 * time.Second
	}
	slowRequest, err := config.Duration("SLOW_REQUEST_THRESHOLD", time.Second)
	if err != nil {
		slowRequest = time.Second
	}
	corsMaxAge, err := config.Duration("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		corsMaxAge = 10 * time.Minute
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", []string{"Content-Type", httpx.RequestIDHeader}),
			ExposedHeaders:   []string{httpx.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           corsMaxAge,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, httpx.AccessLogOptions{SlowThreshold: slowRequest, Quiet: probePaths}),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(bodyLimit)),
		httpx.WithTimeout(requestTimeout),
		rateLimit,
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
