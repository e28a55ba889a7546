// Package main is the entrypoint for the Warden API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/cache"
	"github.com/warden/warden/internal/config"
	"github.com/warden/warden/internal/handler"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/repository"
	"github.com/warden/warden/internal/server"
	"github.com/warden/warden/internal/service"
	"github.com/warden/warden/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx, migrations.FS)
		if err != nil {
			repo.Close()
			return err
		}
		logger.Info("migrations applied", slog.Any("applied", applied))
	}

	// Interface values stay untyped nil when Redis is disabled.
	var (
		principalCache service.PrincipalCache
		cacheHealth    handler.HealthChecker
		cacheClient    *cache.Cache
	)
	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.PrincipalCacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			return err
		}
		principalCache = cacheClient
		cacheHealth = cacheClient
		logger.Info("connected to Redis", slog.Duration("ttl", cfg.PrincipalCacheTTL))
	} else {
		logger.Info("principal cache disabled")
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.TokenAlgorithm)
	if err != nil {
		repo.Close()
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	users := service.NewUserService(repo, principalCache, logger, recorder)
	keys := service.NewAPIKeyService(repo, principalCache, service.APIKeyConfig{
		KeyLength:        cfg.APIKeyLength,
		DefaultValidDays: cfg.APIKeyDefaultValidDays,
	}, logger, recorder)
	authSvc := service.NewAuthService(repo, tokens, cfg.AccessTokenTTL, logger, recorder)
	resolver := service.NewResolver(tokens, keys, repo, principalCache, logger, recorder)

	if cfg.FirstSuperuserEmail != "" {
		if _, _, err := users.EnsureSuperuser(ctx,
			cfg.FirstSuperuserEmail, cfg.FirstSuperuserUsername, cfg.FirstSuperuserPassword,
		); err != nil {
			repo.Close()
			return err
		}
	}

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Auth:           authSvc,
		Users:          users,
		APIKeys:        keys,
		Resolver:       resolver,
		Health:         handler.NewHealthHandler(repo, cacheHealth, logger),
		Metrics:        handler.NewMetricsHandler(registry),
		Recorder:       recorder,
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:    cfg.MaxRequestBodySize,
		IsDevelopment:  cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	srv.OnShutdown("database", func(context.Context) error {
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
		"token_algorithm", cfg.TokenAlgorithm,
	)

	return srv.Run(ctx)
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

	logger := slog.New(h).With(slog.String("service", "warden"))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL strips the password from a connection URL, keeping the username.
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

// sanitizeError removes connection secrets from driver error messages.
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
