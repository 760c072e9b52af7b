package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vetpos/internal/cache"
	"vetpos/internal/config"
	"vetpos/internal/httpapi"
	"vetpos/internal/jobs"
	"vetpos/internal/logging"
	"vetpos/internal/metrics"
	"vetpos/internal/service"
	"vetpos/internal/store"
	"vetpos/internal/store/memory"
	pgstore "vetpos/internal/store/postgres"
)

func main() {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid clinic timezone", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := pgstore.Migrate(ctx, cfg.DatabaseURL); err != nil {
				logger.Fatal("migrations failed", zap.Error(err))
			}
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", zap.String("backend", "postgres"))
	} else {
		repo = memory.NewSeededWithLogger(logger.Named("store"))
		if !cfg.IsDev() {
			logger.Warn("in-memory repository outside dev; sales and stock are lost on restart", zap.String("env", cfg.AppEnv))
		}
		logger.Info("repository ready", zap.String("backend", "memory"))
	}

	var views cache.ViewCache = cache.NewMemoryViewCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisViewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process view cache", zap.Error(err))
		} else {
			views = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("view cache ready", zap.String("backend", "redis"))
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svc := service.New(repo, service.Options{
		Views:    views,
		ViewTTL:  cfg.ViewCacheTTL(),
		Metrics:  m,
		Logger:   logger.Named("service"),
		Location: loc,
	})

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if cfg.BootstrapAdminPassword != "" {
		created, err := auth.EnsureAdmin(ctx, "admin", cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Fatal("bootstrap admin failed", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap admin account created", zap.String("username", "admin"))
		}
	}

	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Metrics:       m,
		Logger:        logger.Named("http"),
	})

	var alertJob *jobs.StockAlertJob
	if cfg.StockAlertSchedule != "" {
		alertJob = jobs.NewStockAlertJob(svc, m, logger.Named("jobs"), loc)
		if err := alertJob.Start(cfg.StockAlertSchedule); err != nil {
			logger.Fatal("stock alert job", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("vetpos listening", zap.String("addr", cfg.Address()), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	if alertJob != nil {
		select {
		case <-alertJob.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("stock alert job did not stop in time")
		}
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.DatabaseURL != "" && cfg.BootstrapAdminPassword != "" {
		if err := validatePasswordStrength(cfg.BootstrapAdminPassword); err != nil {
			return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a known-weak list,
// single repeated characters and straight ascending or descending runs.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("must be at least 10 characters")
	}
	known := map[string]bool{
		"admin12345": true, "password123": true, "1234567890": true,
		"0987654321": true, "qwertyuiop": true, "veterinaria": true,
		"changeme123": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}

	return nil
}
