package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/cache"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/config"
	"github.com/noah-isme/storefront-gateway/internal/coupon"
	"github.com/noah-isme/storefront-gateway/internal/events"
	"github.com/noah-isme/storefront-gateway/internal/health"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/quote"
	"github.com/noah-isme/storefront-gateway/internal/ratelimit"
	"github.com/noah-isme/storefront-gateway/internal/resilience"
	"github.com/noah-isme/storefront-gateway/internal/security"
	"github.com/noah-isme/storefront-gateway/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.RegisterDomainMetrics()

	tracingEnabled := cfg.OTLPEndpoint != ""
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), "storefront-gateway", cfg.OTLPEndpoint, cfg.TraceSampleRatio)
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

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	bus := &events.Bus{Notifiers: []events.Notifier{
		events.LogNotifier{Logger: logger},
	}}

	baseTransport := otelhttp.NewTransport(http.DefaultTransport)
	newBackendClient := func(target, baseURL string) backend.Client {
		return backend.Client{
			BaseURL: baseURL,
			HTTP: resilience.HTTPClient{
				Client:      &http.Client{Transport: baseTransport},
				Breaker:     resilience.NewBreaker(20, 0.5, 30*time.Second).WithTarget(target).WithLogger(logger),
				MaxAttempts: 1,
				Timeout:     cfg.BackendTimeout,
			},
		}
	}

	cartClient := backend.CartClient{Client: newBackendClient("cart-api", cfg.CartAPIBaseURL)}
	couponClient := backend.CouponClient{Client: newBackendClient("coupon-api", cfg.CouponAPIBaseURL)}
	walletClient := backend.WalletClient{Client: newBackendClient("wallet-api", cfg.WalletAPIBaseURL)}

	recommender := &coupon.Service{
		Source:      couponClient,
		Cache:       cache.New(redisClient, cfg.CouponCacheTTL),
		DefaultTopN: cfg.CouponTopN,
	}
	walletSvc := &wallet.Service{Source: walletClient, Events: bus}
	walletPoller := &wallet.Poller{
		Source:   walletClient,
		Events:   bus,
		Interval: cfg.WalletPollInterval,
		Window:   cfg.WalletPollWindow,
	}

	quoteSvc := &quote.Service{
		Carts:       cartClient,
		Coupons:     couponClient,
		Recommender: recommender,
		Wallet:      walletSvc,
		Events:      bus,
	}
	quoteHandler := &quote.Handler{
		Svc:          quoteSvc,
		WalletPoller: walletPoller,
		WalletSource: walletClient,
		Validate:     validator.New(),
		Currency:     cfg.CurrencyCode,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	rateLimit := ratelimit.Handler{
		Limiter: limiter,
		Key:     common.ClientIP,
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter degraded")
		},
	}

	httpMetrics := obs.NewHTTPMetrics(obs.ParseBucketsCSV(cfg.MetricsBuckets))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers)
	r.Use(security.BodyLimit(1 << 20))
	r.Use(rateLimit.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	if cfg.PprofUser != "" {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{redis: redisClient, cart: cartClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		quoteHandler.Routes(v, idem.Middleware)
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

type readinessChecker struct {
	redis *redis.Client
	cart  backend.CartClient
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingCartAPI(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cart.BaseURL, "/")+"/health/live", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.New(resp.Status)
	}
	return nil
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
	mux.Handle("/mutex", pprof.Handler("mutex"))
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
