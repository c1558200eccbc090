// Package main is the entrypoint for the Rosterly web server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/config"
	"github.com/rosterly/rosterly/internal/handler"
	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/middleware"
	"github.com/rosterly/rosterly/internal/migrate"
	"github.com/rosterly/rosterly/internal/repository"
	"github.com/rosterly/rosterly/internal/repository/sqlite"
	"github.com/rosterly/rosterly/internal/server"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/session"
	"github.com/rosterly/rosterly/internal/view"
)

// store is what both database backends provide.
type store interface {
	service.UserStore
	service.StudentStore
	Ping(ctx context.Context) error
}

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	if cfg.SecretGenerated() {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize database
	db, closeDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	logger.Info("connected to database")

	// Initialize session store
	sessionStore, closeSessions, err := openSessionStore(ctx, cfg)
	if err != nil {
		closeDB()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("session store unavailable")
	}

	hasher, err := auth.NewHasher(auth.Params{
		Time:     cfg.Argon2Time,
		MemoryKB: cfg.Argon2MemoryKB,
		Threads:  cfg.Argon2Threads,
	})
	if err != nil {
		closeSessions()
		closeDB()
		return fmt.Errorf("init password hasher: %w", err)
	}

	templates, err := view.New()
	if err != nil {
		closeSessions()
		closeDB()
		return fmt.Errorf("load templates: %w", err)
	}

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	authService := service.NewAuthService(db, hasher, metricsRecorder)
	studentService := service.NewStudentService(db, cfg.PageSize, metricsRecorder)

	// Initialize handlers
	h := handler.New(handler.Config{
		Renderer:        templates,
		Logger:          logger,
		Students:        studentService,
		ShowErrorDetail: cfg.IsDevelopment(),
	})

	sessions := session.NewManager(sessionStore, session.Config{
		CookieName: cfg.SessionCookieName,
		Secret:     []byte(cfg.SessionSecret),
		TTL:        cfg.SessionTTL,
		Secure:     cfg.CookieSecure(),
	}, logger, h.InternalError)

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		Base:     h,
		Students: handler.NewStudentHandler(h, studentService),
		Auth:     handler.NewAuthHandler(h, authService, metricsRecorder),
		Health:   handler.NewHealthHandler(db, sessionStore),
		Metrics:  handler.NewMetricsHandler(metricsRecorder),
		Sessions: sessions,
		Users:    authService,
		Recorder: metricsRecorder,
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
	})

	// Create and run server
	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("database", func(context.Context) error {
		closeDB()
		return nil
	})
	srv.OnShutdown("sessions", func(context.Context) error {
		closeSessions()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"database", backendName(cfg.DatabaseURL),
		"sessions", sessionBackendName(cfg.RedisURL),
	)

	return srv.Run(ctx)
}

// openStore connects to the backend selected by DATABASE_URL.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if strings.HasPrefix(cfg.DatabaseURL, sqlite.Scheme) {
		// SQLite databases are always migrated on open.
		s, err := sqlite.Open(ctx, sqlite.PathFromURL(cfg.DatabaseURL), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		sqlDB := repo.DB()
		err := migrate.Up(ctx, sqlDB, migrate.Postgres, logger)
		_ = sqlDB.Close()
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
	}

	return repo, repo.Close, nil
}

// openSessionStore uses Redis when configured and process memory otherwise.
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(), func() {}, nil
	}

	rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

func backendName(databaseURL string) string {
	if strings.HasPrefix(databaseURL, sqlite.Scheme) {
		return "sqlite"
	}
	return "postgres"
}

func sessionBackendName(redisURL string) string {
	if redisURL == "" {
		return "memory"
	}
	return "redis"
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
	switch strings.ToLower(level) {
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

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

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
