package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/adrinerDP/madrinerbot/internal/health"
	"github.com/adrinerDP/madrinerbot/internal/obs"
)

// OpsConfig wires the operational HTTP surface.
type OpsConfig struct {
	Redis       *redis.Client
	Health      health.Handler
	Logger      zerolog.Logger
	Metrics     *obs.HTTPMetrics
	Gatherer    prometheus.Gatherer
	RateLimit   string
	LimitPrefix string
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = "madriner:ops:limit"
	}
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// NewOpsRouter builds the router serving health probes and Prometheus metrics.
// Every route is rate limited per client IP.
func NewOpsRouter(cfg OpsConfig) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)

	if cfg.RateLimit != "" && cfg.Redis != nil {
		rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("parse ops rate limit %q: %w", cfg.RateLimit, err)
		}
		store, err := NewLimiterStore(cfg.Redis, cfg.LimitPrefix)
		if err != nil {
			return nil, fmt.Errorf("ops limiter store: %w", err)
		}
		r.Use(stdlib.NewMiddleware(limiter.New(store, rate)).Handler)
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)
	return r, nil
}
