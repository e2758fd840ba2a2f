package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Asiful600w/Daily-Fresh-sub001/credauth"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/config"
	"github.com/Asiful600w/Daily-Fresh-sub001/internal/migrations"
	"github.com/Asiful600w/Daily-Fresh-sub001/pkg/repository"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database
	db, err := repository.NewDB(ctx, repository.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	if *migrate {
		if err := migrations.Up(ctx, db); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Connect to Redis if challenges live there
	var rdb *redis.Client
	if cfg.UsesRedis() {
		opts := &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.Redis.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
			os.Exit(1)
		}
		logger.Info("challenge store: redis", "addr", cfg.Redis.Addr)
	}

	svcCfg := credauth.Config{
		DB:                     db,
		JWTSecret:              cfg.JWTSecret,
		JWTIssuer:              cfg.JWTIssuer,
		AccessTokenTTL:         cfg.AccessTokenTTL,
		TwoFactorEncryptionKey: cfg.TwoFactorEncryptionKey,
		MaxFailedAttempts:      cfg.Lockout.MaxFailedAttempts,
		LockoutDuration:        cfg.Lockout.Duration,
		ChallengeTTL:           cfg.Lockout.ChallengeTTL,
		StrictEmailValidation:  cfg.StrictEmailValidation,
		HashConcurrency:        cfg.HashConcurrency,
		DummyHashAlgorithm:     cfg.DummyHashAlgorithm,
		DummyBcryptCost:        cfg.DummyBcryptCost,
		DiscloseLockout:        cfg.DiscloseLockout,
		AuditQueueSize:         cfg.AuditQueueSize,
		RedisKeyPrefix:         cfg.Redis.KeyPrefix,
		CookieDomain:           cfg.CookieDomain,
		InsecureCookie:         !cfg.CookieSecure,
		RateLimit: credauth.RateLimitConfig{
			Disabled:       !cfg.RateLimit.Enabled,
			LoginRequests:  cfg.RateLimit.LoginRequestsPerWindow,
			VerifyRequests: cfg.RateLimit.VerifyRequestsPerWindow,
			Window:         time.Duration(cfg.RateLimit.LoginWindowMinutes) * time.Minute,
		},
		SecurityHeaders: credauth.SecurityHeadersConfig{
			Disabled:          !cfg.SecurityHeaders.Enabled,
			CSP:               cfg.SecurityHeaders.CSP,
			HSTSMaxAge:        cfg.SecurityHeaders.HSTSMaxAge,
			FrameOptions:      cfg.SecurityHeaders.FrameOptions,
			ReferrerPolicy:    cfg.SecurityHeaders.ReferrerPolicy,
			PermissionsPolicy: cfg.SecurityHeaders.PermissionsPolicy,
		},
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}
	if rdb != nil {
		svcCfg.Redis = rdb
	}

	svc, err := credauth.New(svcCfg)
	if err != nil {
		logger.Error("failed to initialize authentication", "error", err)
		os.Exit(1)
	}

	if cfg.HasTwoFactorEncryption() {
		logger.Info("two-factor secrets are encrypted at rest")
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           svc.Router(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error("audit drain incomplete", "error", err)
	}

	logger.Info("server stopped")
}
