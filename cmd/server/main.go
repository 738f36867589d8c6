package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulso-backend/internal/auth"
	"pulso-backend/internal/config"
	"pulso-backend/internal/database"
	"pulso-backend/internal/logger"
	"pulso-backend/internal/mailer"
	customMiddleware "pulso-backend/internal/middleware"
	"pulso-backend/internal/notify"
	"pulso-backend/internal/reminders"
	"pulso-backend/internal/repository"
	"pulso-backend/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const reminderTick = 30 * time.Second

func main() {
	// Load .env (ignored when absent, env vars set directly in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	if err := run(cfg, zl); err != nil {
		log.Fatalw("server stopped", "error", err)
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	log := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cfg.StoreBackend != "mongo" {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Disconnect(shutdownCtx); err != nil {
			log.Warnw("disconnecting from MongoDB", "error", err)
		}
	}()

	var limiter customMiddleware.FixedWindow = customMiddleware.NewMemoryWindow(server.AuthRateLimit, server.AuthRateWindow)
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer rdb.Close()
		limiter = customMiddleware.NewRedisWindow(rdb, "pulso:ratelimit:auth", server.AuthRateLimit, server.AuthRateWindow)
		log.Info("Auth rate limit shared through Redis")
	}

	timer := reminders.NewTimer(notify.NewLogNotifier(log), store.Reminders, reminderTick, log)
	active, err := store.Reminders.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("loading reminders: %w", err)
	}
	timer.Load(active)
	log.Infow("Reminder timer loaded", "reminders", len(active))
	timer.Start(ctx)

	sender := mailer.New(mailer.Options{
		From:         cfg.FromEmail,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
	}, log)

	router := server.NewRouter(server.Deps{
		Store:        store,
		Issuer:       auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Mailer:       sender,
		Timer:        timer,
		AuthLimiter:  limiter,
		Logger:       zl,
		BaseURL:      cfg.BaseURL,
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsProduction(),
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Pulso backend starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*repository.Store, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.Connect(connectCtx, cfg.MongoURI, cfg.DBName); err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	store := repository.NewMongoStore()

	indexCtx, cancelIdx := context.WithTimeout(ctx, 10*time.Second)
	defer cancelIdx()
	store.EnsureIndexes(indexCtx, func(name string, err error) {
		log.Warnw("failed to create indexes", "collection", name, "error", err)
	})
	return store, nil
}
