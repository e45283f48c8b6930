package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aranya-labs/backend-vastra/internal/app"
	"github.com/aranya-labs/backend-vastra/internal/auth"
	"github.com/aranya-labs/backend-vastra/internal/cart"
	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/checkout"
	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/config"
	"github.com/aranya-labs/backend-vastra/internal/coupon"
	"github.com/aranya-labs/backend-vastra/internal/events"
	"github.com/aranya-labs/backend-vastra/internal/health"
	"github.com/aranya-labs/backend-vastra/internal/lock"
	"github.com/aranya-labs/backend-vastra/internal/notify"
	"github.com/aranya-labs/backend-vastra/internal/obs"
	"github.com/aranya-labs/backend-vastra/internal/order"
	"github.com/aranya-labs/backend-vastra/internal/payment"
	"github.com/aranya-labs/backend-vastra/internal/queue"
	"github.com/aranya-labs/backend-vastra/internal/ratelimit"
	"github.com/aranya-labs/backend-vastra/internal/resilience"
	"github.com/aranya-labs/backend-vastra/internal/security"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
	"github.com/aranya-labs/backend-vastra/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "vastra")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "vastra-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
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

	if envBool("RUN_MIGRATIONS", false) {
		source := "file://" + envOrDefault("MIGRATIONS_PATH", "db/migrations")
		m, err := migrate.New(source, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open migrations")
		}
		if err := app.RunMigrations(m); err != nil {
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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "vastra-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
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

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	catalogRepo := catalog.Repo{DB: pool}
	cartRepo := cart.Repo{DB: pool}
	orderRepo := order.Repo{DB: pool}
	userRepo := user.Repo{DB: pool}
	couponRepo := coupon.Repo{DB: pool}

	catalogSvc := &catalog.Service{
		Repo:   catalogRepo,
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	catalogHandler := &catalog.Handler{Service: catalogSvc}

	cartSvc := &cart.Service{Repo: cartRepo, Catalog: catalogRepo, TTL: cfg.CartTTL}
	cartHandler := &cart.Handler{Service: cartSvc}

	couponSvc := &coupon.Service{Store: couponRepo}

	emailNotifier := notify.EmailNotifier{
		Mail:    common.NopEmailSender{},
		Enabled: cfg.NotifyEmailEnabled,
		From:    cfg.NotifyEmailFrom,
	}
	bus := &events.Bus{
		Store:     events.PgStore{DB: pool},
		Notifiers: []events.Notifier{emailNotifier},
	}

	outboundHTTP := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	var rateClient shipping.Client = shipping.MockClient{}
	if cfg.ShippingProviderURL != "" || cfg.ShippingProviderKey != "" {
		rateClient = shipping.Shiprocket{
			BaseURL: cfg.ShippingProviderURL,
			Token:   cfg.ShippingProviderKey,
			HTTP: &resilience.HTTPClient{
				Client:      outboundHTTP,
				Breaker:     resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithTarget("shipping-rates").WithLogger(logger),
				MaxAttempts: 3,
				Timeout:     cfg.ShippingRequestTimeout,
			},
		}
	}
	estimator := shipping.Estimator{Client: rateClient, OriginPIN: cfg.ShippingOriginPIN, Logger: &logger}

	razorpay := payment.Razorpay{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		HTTP: &resilience.HTTPClient{
			Client:      outboundHTTP,
			Breaker:     resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithTarget("razorpay").WithLogger(logger),
			MaxAttempts: 2,
			Timeout:     10 * time.Second,
		},
	}
	providers := map[string]payment.Provider{"razorpay": razorpay}

	orderSvc := &order.Service{Pool: pool, Repo: orderRepo, Catalog: catalogRepo, Bus: bus, Logger: logger}
	orderHandler := &order.Handler{Service: orderSvc}
	orderAdmin := &order.AdminHandler{Service: orderSvc}

	checkoutSvc := &checkout.Service{
		Users:    userRepo,
		Carts:    cartSvc,
		Catalog:  catalogRepo,
		Orders:   orderRepo,
		Coupons:  couponSvc,
		Shipping: estimator,
		Tx:       checkout.PgTx{Pool: pool, Catalog: catalogRepo, Orders: orderRepo, Carts: cartRepo},
		Provider: razorpay,
		Tasks:    queue.Client{C: taskClient},
		Bus:      bus,
		Locker:   &lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		Logger:   logger,

		GSTRateBPS:      cfg.GSTRateBPS,
		OriginState:     cfg.GSTOriginState,
		Currency:        cfg.CurrencyCode,
		ProviderKeyID:   cfg.RazorpayKeyID,
		DefaultShipping: cfg.ShippingDefaultPrice,
		CodTTL:          cfg.CodCodeTTL,
		CodMaxTries:     cfg.CodVerifyMaxTries,
		LockTTL:         cfg.LockTTL,
	}
	checkoutHandler := &checkout.Handler{Service: checkoutSvc, Validate: app.NewValidator()}

	webhookHandler := payment.Webhook{
		Providers: providers,
		Orders:    orderSvc,
		Carts:     cartRepo,
		Coupons:   couponSvc,
		Replay:    redisClient,
		ReplayTTL: 24 * time.Hour,
		Events:    bus,
		Logger:    logger,
	}

	verifier := auth.Verifier{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    envOrDefault("JWT_ISSUER", ""),
		Audience:  envOrDefault("JWT_AUDIENCE", ""),
		Algorithm: jwa.HS256,
		ClockSkew: 30 * time.Second,
	}
	authMW := auth.Middleware{Verifier: verifier, AccessCookie: envOrDefault("ACCESS_COOKIE_NAME", "")}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:checkout"},
		Config: ratelimit.Config{
			Key:    rateKey,
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	codVerifyLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:codverify"},
		Config: ratelimit.Config{
			Key:    rateKey,
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CodVerifyMaxTries,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	apiLimiter := limiter.New(limiterStore, limiter.Rate{
		Period: time.Minute,
		Limit:  int64(envInt("API_RATE_MAX", 300)),
	})

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(limitermw.NewMiddleware(apiLimiter).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
			envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")))
	}

	healthHandler := health.Handler{
		Probes: map[string]health.Pinger{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	adminKey := envOrDefault("ADMIN_API_KEY", "")

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)

		v.Route("/cart", func(c chi.Router) {
			c.Use(authMW.RequireAuth)
			c.Get("/", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/items", cartHandler.AddItem)
				g.Patch("/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/items/{itemId}", cartHandler.RemoveItem)
			})
		})

		v.With(authMW.RequireAuth, checkoutLimit.Middleware, idem.Middleware).
			Post("/checkout", checkoutHandler.Checkout)

		v.Group(func(authR chi.Router) {
			authR.Use(authMW.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{orderId}", orderHandler.Get)
			authR.Post("/orders/{orderId}/cancel", orderHandler.Cancel)
			authR.With(codVerifyLimit.Middleware, idem.Middleware).
				Post("/orders/{orderID}/verify-cod", checkoutHandler.VerifyCod)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(requireAdminKey(adminKey))
			admin.Patch("/orders/{orderId}/status", orderAdmin.PatchStatus)
			admin.Patch("/orders/{orderId}/items/{productId}/status", orderAdmin.PatchItemStatus)
			admin.Post("/products/import", catalogHandler.Import)
		})

		v.Post("/webhooks/payment/{provider}", webhookHandler.Handle)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// rateKey buckets by authenticated user when available, client IP otherwise.
func rateKey(r *http.Request) string {
	if id, ok := common.UserID(r.Context()); ok && id != "" {
		return id
	}
	return r.RemoteAddr
}

// requireAdminKey guards back-office routes. Role management lives in the
// identity service; the API trusts a shared operations key instead.
func requireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin access disabled", nil)
				return
			}
			provided := strings.TrimSpace(r.Header.Get("X-Admin-Key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
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

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
