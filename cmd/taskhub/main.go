package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/httpserver"
	"taskhub/internal/logging"
	"taskhub/internal/respond"
	"taskhub/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("taskhub exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL})
	if err != nil {
		return err
	}

	var (
		userStore auth.UserStore
		taskRepo  tasks.Repository
		pinger    httpserver.Pinger
	)

	switch cfg.Storage {
	case "memory":
		users := auth.NewMemoryStore()
		userStore = users
		taskRepo = tasks.NewMemoryStore(users)
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		dbConn, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer dbConn.Close()
		userStore = auth.NewStore(dbConn)
		taskRepo = tasks.NewStore(dbConn)
		pinger = dbConn
	}

	if cfg.UsersPath != "" {
		n, err := auth.SeedFromFile(ctx, userStore, cfg.UsersPath)
		if err != nil {
			return err
		}
		logger.Info("seeded users", "path", cfg.UsersPath, "created", n)
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:   logger,
		Respond:  respond.NewWriter(logger, cfg.ExposeErrors),
		Auth:     auth.NewService(userStore, tokens),
		Verifier: tokens,
		Tasks:    tasks.NewController(taskRepo),
		DB:       pinger,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctxShutdown)
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	ctxOpen, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dbConn, err := db.Open(ctxOpen, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	n, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsDir)
	if err != nil {
		dbConn.Close()
		return nil, err
	}
	logger.Info("migrations applied", "files", n, "dir", cfg.MigrationsDir)
	return dbConn, nil
}
