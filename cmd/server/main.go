package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskforce/identity-system/internal/api"
	"github.com/deskforce/identity-system/internal/core/ports"
	"github.com/deskforce/identity-system/internal/infrastructure/config"
	mongostore "github.com/deskforce/identity-system/internal/infrastructure/db/mongo"
	redisstore "github.com/deskforce/identity-system/internal/infrastructure/db/redis"
	"github.com/deskforce/identity-system/internal/infrastructure/email"
	"github.com/deskforce/identity-system/internal/infrastructure/queue"
	"github.com/deskforce/identity-system/pkg/logger"

	_ "github.com/deskforce/identity-system/docs"
)

const shutdownTimeout = 10 * time.Second

// @title        Identity System API
// @version      1.0
// @description  Credential and session lifecycle service: admin registration
// @description  with email confirmation, admin-provisioned user accounts,
// @description  bearer-token login, and password resets.
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MongoDB ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	if err := mongostore.Bootstrap(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongodb bootstrap failed")
	}

	// --- Redis (login-lock leases) ---
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}()

	// --- Outbound email ---
	var sender ports.Notifier
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPNotifier(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log)
	} else {
		log.Warn().Msg("no SMTP relay configured, emails will be logged only")
		sender = email.NewLogNotifier(log)
	}

	dispatcher := queue.NewDispatcher(cfg.EmailWorkers, sender, log)
	dispatcher.Start(ctx)

	// --- HTTP server ---
	e := api.NewRouter(cfg, db, rdb, dispatcher, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting identity server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
