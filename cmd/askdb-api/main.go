package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/database"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/sqlgen"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := database.Open(database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Name:            cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	sessions := database.NewSessions(db)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := sessions.HealthCheck(pingCtx); err != nil {
		logger.Warn("database unreachable at startup, serving anyway", slog.Any("error", err))
	}
	cancelPing()

	params := nl2sql.DefaultParams()
	params.MaxTokens = cfg.LLM.MaxTokens
	completer, err := nl2sql.NewOpenAICompleter(nl2sql.OpenAIConfig{
		APIType:    cfg.LLM.APIType,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		APIVersion: cfg.LLM.APIVersion,
		Params:     params,
		Timeout:    cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize completer", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger: logger,
		Generator: &sqlgen.Generator{
			Sessions:  sessions,
			Completer: completer,
			Logger:    logger,
		},
		Readiness:         api.CombineReadinessChecks(sessions.HealthCheck),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Level == config.AuthLevelFunction {
		validator, err := auth.NewStaticKeyValidator(cfg.Auth.FunctionKeys)
		if err != nil {
			logger.Error("failed to parse function keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("auth_level", cfg.Auth.Level),
			slog.String("llm_api_type", cfg.LLM.APIType),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
