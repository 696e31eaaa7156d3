package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/arvind-dev/backend-bazaar/internal/app"
	"github.com/arvind-dev/backend-bazaar/internal/cart"
	"github.com/arvind-dev/backend-bazaar/internal/catalog"
	"github.com/arvind-dev/backend-bazaar/internal/charge"
	"github.com/arvind-dev/backend-bazaar/internal/checkout"
	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/config"
	"github.com/arvind-dev/backend-bazaar/internal/coupon"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
	"github.com/arvind-dev/backend-bazaar/internal/health"
	"github.com/arvind-dev/backend-bazaar/internal/lock"
	"github.com/arvind-dev/backend-bazaar/internal/notify"
	"github.com/arvind-dev/backend-bazaar/internal/obs"
	"github.com/arvind-dev/backend-bazaar/internal/offer"
	"github.com/arvind-dev/backend-bazaar/internal/order"
	"github.com/arvind-dev/backend-bazaar/internal/ratelimit"
	"github.com/arvind-dev/backend-bazaar/internal/shipping"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "bazaar")
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	}

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "bazaar-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if envBool("RUN_MIGRATIONS", true) {
		migrationsURL := envOrDefault("MIGRATIONS_URL", "file://migrations")
		if err := app.MigrateUp(migrationsURL, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "bazaar-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	queries := db.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	apiLimiter := app.NewAPILimiter(limiterStore, int64(envInt("RATE_LIMIT_PER_MINUTE", 300)))

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close asynq client")
		}
	}()

	bus := &events.Bus{
		Store:     queries,
		Scheduler: &notify.Scheduler{Client: asynqClient, Queue: cfg.AsynqQueue},
		Notifiers: []events.Notifier{
			notify.EmailNotifier{Mail: common.NopEmailSender{}, Enabled: cfg.EmailEnabled},
		},
	}

	catalogSvc := &catalog.Service{
		Q:     queries,
		Cache: catalog.NewCache(redisClient, envDurationMillis("CATALOG_CACHE_TTL_MS", 60_000)),
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	cartHandler := &cart.Handler{Svc: &cart.Service{Q: queries}}

	couponSvc := &coupon.Service{Q: queries}
	couponHandler := &coupon.Handler{Q: queries, Svc: couponSvc}
	offerHandler := &offer.Handler{Q: queries}

	checkoutSvc := &checkout.Service{
		Store:         checkout.PGStore{Queries: queries, Pool: pool},
		Charges:       charge.Calculator{DefaultPlatformFee: cfg.PlatformFeeDefault},
		Shipping:      shipping.FeeRule{FreeThreshold: cfg.ShippingFreeThreshold, FlatFee: cfg.ShippingFlatFee},
		Events:        bus,
		RetryAttempts: cfg.CheckoutRetryAttempts,
		RetryBase:     cfg.CheckoutRetryBase,
	}
	checkoutHandler := &checkout.Handler{
		Svc:  checkoutSvc,
		Lock: &lock.Locker{R: redisClient},
	}

	orderHandler := &order.Handler{Q: queries, Events: bus}
	orderAdmin := &order.AdminHandler{Q: queries}
	notifyHandler := &notify.Handler{Q: queries}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	commitLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:checkout:"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return common.ClientIP(r) },
			Window: time.Minute,
			Max:    envInt("CHECKOUT_RATE_LIMIT_PER_MINUTE", 30),
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limit store")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(limiterstdlib.NewMiddleware(apiLimiter).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-User-Id"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(userIdentity)

		v.Get("/products/{productID}", catalogHandler.Get)
		v.Get("/stores/{storeID}/products", catalogHandler.ListByStore)
		v.Get("/stores/{storeID}/offers", offerHandler.List)

		v.Post("/coupons/validate", couponHandler.Validate)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Post("/items", cartHandler.AddItem)
			c.Patch("/items/{itemID}", cartHandler.UpdateItem)
			c.Delete("/items/{itemID}", cartHandler.RemoveItem)
		})

		v.Post("/checkout/quote", checkoutHandler.Quote)
		v.With(commitLimit.Middleware).Post("/checkout", checkoutHandler.Commit)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{orderID}", orderHandler.Get)
		v.Post("/orders/{orderID}/cancel", orderHandler.Cancel)

		v.Get("/notifications", notifyHandler.List)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(idem.Middleware)
			admin.Post("/offers", offerHandler.Create)
			admin.Delete("/stores/{storeID}/offers/{offerID}", offerHandler.Delete)
			admin.Post("/coupons", couponHandler.Create)
			admin.Patch("/orders/{orderID}/status", orderAdmin.PatchStatus)
			admin.Patch("/products/{productID}/stock", catalogHandler.PatchStock)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		graceCtx, graceCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer graceCancel()
		if err := srv.Shutdown(graceCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

// userIdentity trusts the identity forwarded by the gateway. Anonymous
// requests pass through; handlers that need a user reject them.
func userIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := strings.TrimSpace(r.Header.Get("X-User-Id")); raw != "" {
			r = r.WithContext(common.WithUserID(r.Context(), raw))
		}
		next.ServeHTTP(w, r)
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
