package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/api"
	"github.com/tutorlane/server/internal/app"
	"github.com/tutorlane/server/internal/client"
	"github.com/tutorlane/server/internal/config"
	"github.com/tutorlane/server/internal/repository"
	"github.com/tutorlane/server/internal/service"
	"github.com/tutorlane/server/internal/session"
	"github.com/tutorlane/server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	docStore := store.New(pool, logger)

	userRepo := repository.NewUserRepository(docStore)
	availabilityRepo := repository.NewAvailabilityRepository(docStore)
	bookingRepo := repository.NewBookingRepository(docStore)

	meetings := client.NewMeetingClient(cfg.ZoomAPIURL, cfg.ZoomToken)
	email := client.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey)

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, meetings, logger)
	bookingSvc := service.NewBookingService(docStore, userRepo, bookingRepo, email, logger)
	feedbackSvc := service.NewFeedbackService(bookingRepo, logger)
	profileSvc := service.NewProfileService(userRepo, logger)

	sessions := session.NewRegistry(availabilitySvc, bookingSvc, profileSvc)

	sweeper := app.NewSweeper(bookingSvc, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	handler := api.New(availabilitySvc, bookingSvc, feedbackSvc, sessions, meetings, email, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(cfg.AuthSecret, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
