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

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/adrinerDP/madrinerbot/internal/app"
	"github.com/adrinerDP/madrinerbot/internal/bot"
	"github.com/adrinerDP/madrinerbot/internal/carrier"
	"github.com/adrinerDP/madrinerbot/internal/config"
	"github.com/adrinerDP/madrinerbot/internal/health"
	"github.com/adrinerDP/madrinerbot/internal/obs"
	"github.com/adrinerDP/madrinerbot/internal/parcel"
	"github.com/adrinerDP/madrinerbot/internal/ratelimit"
	"github.com/adrinerDP/madrinerbot/internal/resilience"
	"github.com/adrinerDP/madrinerbot/internal/session"
	"github.com/adrinerDP/madrinerbot/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "madriner")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	if envBool("OBS_ENABLE_TRACING", true) {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "madriner-bot",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err = redisClient.Ping(pingCtx).Err()
	cancelPing()
	if err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	breakers := resilience.NewBreakerGroup(
		cfg.CircuitTrackerMinReq,
		cfg.CircuitTrackerFailureRate,
		cfg.CircuitTrackerOpenFor,
		logger.With().Str("component", "breaker").Logger(),
	)
	trackerClient := tracker.NewClient(tracker.ClientConfig{
		BaseURL:          cfg.TrackerBaseURL,
		Timeout:          cfg.TrackerTimeout,
		BootstrapTimeout: cfg.TrackerBootstrapTimeout,
		Breakers:         breakers,
		Logger:           logger.With().Str("component", "tracker").Logger(),
	})

	directory := carrier.NewDirectory(trackerClient, logger)
	if _, err := directory.Refresh(ctx); err != nil {
		logger.Fatal().Err(err).Msg("load carrier directory")
	}
	go directory.RunRefresher(ctx, cfg.CarrierRefreshInterval)

	parcels := &parcel.Service{
		Carriers:   directory,
		Aggregator: parcel.Aggregator{Oracle: trackerClient, Concurrency: cfg.FanoutConcurrency},
		Store:      session.NewStore(redisClient, cfg.SessionKeyPrefix, cfg.SessionTTL),
		Logger:     logger.With().Str("component", "parcel").Logger(),
	}
	handler := &bot.Handler{
		Prefix:  cfg.BotPrefix,
		Lookups: parcels,
		Limiter: ratelimit.Limiter{
			Client: redisClient,
			Prefix: "madriner:cmd:",
			Window: cfg.CommandRateWindow,
			Max:    cfg.CommandRateMax,
		},
		ProgressInterval: 750 * time.Millisecond,
		Logger:           logger.With().Str("component", "bot").Logger(),
	}

	var opsServer *http.Server
	if addr := cfg.OpsAddr(); addr != "" {
		opsHandler, err := app.NewOpsRouter(app.OpsConfig{
			Redis: redisClient,
			Health: health.Handler{
				Checker:      health.Probe{Redis: redisClient, Carriers: directory},
				RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
			},
			Logger:    logger,
			Metrics:   obs.NewHTTPMetrics(metricsNamespace, nil),
			RateLimit: cfg.OpsRateLimit,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("build ops router")
		}
		opsServer = &http.Server{Addr: addr, Handler: opsHandler, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", addr).Msg("ops server starting")
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("ops server exited unexpectedly")
			}
		}()
	}

	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentMessageContent
	unregister := handler.Register(ctx, dg)
	if err := dg.Open(); err != nil {
		logger.Fatal().Err(err).Msg("open discord gateway")
	}
	logger.Info().Int("carriers", len(directory.Carriers())).Msg("bot started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	health.SetReady(false)
	unregister()
	if err := dg.Close(); err != nil {
		logger.Error().Err(err).Msg("close discord gateway")
	}
	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown ops server")
		}
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
