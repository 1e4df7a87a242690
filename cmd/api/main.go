// Package main is the entrypoint for the job board API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/campusjobs/jobboard/internal/auth"
	"github.com/campusjobs/jobboard/internal/cache"
	"github.com/campusjobs/jobboard/internal/config"
	"github.com/campusjobs/jobboard/internal/handler"
	"github.com/campusjobs/jobboard/internal/metrics"
	"github.com/campusjobs/jobboard/internal/repository"
	"github.com/campusjobs/jobboard/internal/server"
	"github.com/campusjobs/jobboard/internal/service"
	"github.com/campusjobs/jobboard/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Stores
	repo := repository.New()

	resumes, err := storage.NewResumeStore(cfg.ResumeDir, logger)
	if err != nil {
		logger.Error("failed to initialize resume store",
			slog.String("error", err.Error()),
			slog.String("resume_dir", cfg.ResumeDir),
		)
		os.Exit(1)
	}
	logger.Info("resume store ready", slog.String("root", resumes.Root()))

	// Optional Redis for shared rate limiting
	var cacheClient *cache.Cache
	if cfg.RedisEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	// Services
	metricsRecorder := metrics.NewInMemory()
	identityService := service.NewIdentityService(repo, logger, metricsRecorder)
	gate := auth.NewGate(identityService, logger, metricsRecorder)
	jobService := service.NewJobService(repo, gate, resumes, logger, metricsRecorder)

	if cfg.SeedDefaultUsers {
		if _, err := identityService.SeedDefaults(ctx); err != nil {
			logger.Error("failed to seed default users", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Router
	var healthCache handler.HealthChecker
	if cacheClient != nil {
		healthCache = cacheClient
	}
	router := server.NewRouter(server.RouterConfig{
		Logger:             logger,
		Identity:           identityService,
		Jobs:               jobService,
		Health:             handler.NewHealthHandler(repo, resumes, healthCache),
		Metrics:            metricsRecorder,
		Limiter:            newLimiter(cfg, cacheClient),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		MaxUploadSize:      cfg.MaxUploadSize,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		IsDevelopment:      cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("repository", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"redis", cfg.RedisEnabled(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLimiter picks the rate limiter backend. Redis shares buckets across
// replicas; without it each process limits on its own.
func newLimiter(cfg *config.Config, cacheClient *cache.Cache) cache.Limiter {
	switch {
	case !cfg.RateLimitEnabled:
		return nil
	case cacheClient != nil:
		return cache.NewRedisLimiter(cacheClient, cfg.RateLimitRPS, cfg.RateLimitBurst)
	default:
		return cache.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL strips the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
