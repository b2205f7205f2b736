package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/loan-assessment/internal/analytics"
	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/extract"
	"github.com/Dan9191/loan-assessment/internal/handler"
	"github.com/Dan9191/loan-assessment/internal/integrations/bureau"
	"github.com/Dan9191/loan-assessment/internal/middleware"
	"github.com/Dan9191/loan-assessment/internal/pipeline"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/scheduler"
	"github.com/Dan9191/loan-assessment/internal/scoring"
	"github.com/Dan9191/loan-assessment/internal/service"
	"github.com/Dan9191/loan-assessment/internal/utils"
	"github.com/Dan9191/loan-assessment/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		logger.Fatalf("Invalid encryption key: %v", err)
	}
	vault, err := utils.NewVault(key, cfg.HMACSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize vault: %v", err)
	}

	// Assessment pipeline
	var scorerOpts []scoring.Option
	if cfg.BureauURL != "" {
		scorerOpts = append(scorerOpts, scoring.WithCreditModel(bureau.NewClient(cfg, logger)))
	}
	runner := pipeline.NewRunner(
		extract.NewExtractor(logger),
		analytics.NewAggregator(cfg.LoanTermMonths),
		scoring.NewScorer(logger, scorerOpts...),
		logger,
	)

	var svcOpts []service.Option
	if cfg.NotificationsEnabled() {
		svcOpts = append(svcOpts, service.WithNotifier(email.NewSender(cfg, logger)))
	}

	// Initialize database
	if cfg.PersistenceEnabled() {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		svcOpts = append(svcOpts, service.WithStore(repository.NewRepository(db)))
	} else {
		logger.Warn("DB_CONN is empty, assessments will not be stored")
	}

	// Initialize layers
	svc := service.NewService(runner, vault, logger, cfg, svcOpts...)
	h := handler.NewHandler(svc, logger)

	jobs := scheduler.New(logger, 5*time.Minute)
	if cfg.PersistenceEnabled() {
		if err := jobs.ScheduleRetention(cfg.RetentionSchedule, svc); err != nil {
			logger.Fatalf("Failed to schedule retention: %v", err)
		}
	}
	jobs.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, middleware.AuthMiddleware(cfg)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	jobs.Stop(shutdownCtx)
}
