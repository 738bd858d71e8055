package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/velferd/behandlerdialog/internal/platform/config"
	"github.com/velferd/behandlerdialog/internal/platform/cronjob"
	"github.com/velferd/behandlerdialog/internal/platform/database"
	"github.com/velferd/behandlerdialog/internal/platform/kafka"
	"github.com/velferd/behandlerdialog/internal/platform/leaderelection"
	"github.com/velferd/behandlerdialog/internal/platform/logger"

	"github.com/velferd/behandlerdialog/internal/dialog/adapters/archive"
	"github.com/velferd/behandlerdialog/internal/dialog/adapters/attachmentstore"
	"github.com/velferd/behandlerdialog/internal/dialog/adapters/casetracking"
	"github.com/velferd/behandlerdialog/internal/dialog/adapters/partyregistry"
	"github.com/velferd/behandlerdialog/internal/dialog/adapters/pdfgen"
	"github.com/velferd/behandlerdialog/internal/dialog/app"
	"github.com/velferd/behandlerdialog/internal/dialog/events"
	"github.com/velferd/behandlerdialog/internal/dialog/jobs"
	"github.com/velferd/behandlerdialog/internal/dialog/repository/postgres"
)

const serviceName = "behandlerdialog"

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(serviceName, cfg.LogLevel)
	appLogger.Info("Starting service...")
	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"kafka_brokers", cfg.KafkaBrokers,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"journaling_enabled", cfg.JournalingEnabled,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	producer, err := kafka.NewSyncProducer(cfg.KafkaBrokers)
	if err != nil {
		appLogger.Error("Failed to create kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	leaderClient, err := leaderelection.NewClient(cfg.ElectorURL)
	if err != nil {
		appLogger.Error("Failed to create leader election client", "error", err)
		os.Exit(1)
	}

	// Repositories and external collaborators.
	messageRepo := postgres.NewPgMessageRepository(dbPool)
	statusRepo := postgres.NewPgStatusRepository(dbPool)

	archiveClient := archive.NewClient(appLogger, cfg.ArchiveBaseURL, nil)
	pdfClient := pdfgen.NewClient(appLogger, cfg.PDFGenBaseURL, nil)
	attachmentClient := attachmentstore.NewClient(appLogger, cfg.AttachmentStoreURL, nil)
	partyClient := partyregistry.NewClient(appLogger, cfg.PartyRegistryBaseURL, nil)
	caseClient := casetracking.NewClient(appLogger, cfg.CaseTrackingBaseURL, nil)

	publisher := events.NewPublisher(producer, events.Topics{
		RejectedMessage: cfg.RejectedMessageTopic,
		NoAnswer:        cfg.NoAnswerTopic,
		StatusFanout:    cfg.StatusFanoutTopic,
	}, appLogger)

	// Stream processors.
	correlator := app.NewCorrelator(messageRepo, attachmentClient, caseClient, appLogger)
	statusTracker := app.NewStatusTracker(messageRepo, statusRepo, publisher, appLogger)
	identityMerger := app.NewIdentityMerger(messageRepo, appLogger)

	consumers := map[string]kafka.RecordProcessor{
		cfg.InboundMessageTopic: app.NewInboundMessageProcessor(correlator, appLogger),
		cfg.StatusEventTopic:    app.NewStatusEventProcessor(statusTracker, appLogger),
		cfg.IdentityChangeTopic: app.NewIdentityChangeProcessor(identityMerger, appLogger),
	}

	// Background jobs, gated by leadership.
	runner := cronjob.NewRunner(leaderClient, appLogger)
	backgroundJobs := []cronjob.Job{
		jobs.NewJournalJob(cfg.JournalingEnabled, messageRepo, partyClient, pdfClient, archiveClient,
			cfg.JobInitialDelay, cfg.JournalJobInterval, appLogger),
		jobs.NewUnansweredJob(messageRepo, publisher, cfg.ReplyDeadline,
			cfg.JobInitialDelay, cfg.UnansweredJobInterval, appLogger),
		jobs.NewRejectedJob(messageRepo, publisher,
			cfg.JobInitialDelay, cfg.RejectedJobInterval, appLogger),
	}

	var isReady atomic.Bool

	g, groupCtx := errgroup.WithContext(mainCtx)

	for topic, processor := range consumers {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, kafka.ConsumerGroupID(cfg.KafkaGroupID, topic), topic, processor, appLogger)
		if err != nil {
			appLogger.Error("Failed to create kafka consumer", "topic", topic, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(groupCtx)
		})
	}

	for _, job := range backgroundJobs {
		job := job
		g.Go(func() error {
			return runner.Start(groupCtx, job)
		})
	}

	// Health and metrics endpoints.
	router := chi.NewRouter()
	router.Get("/health/alive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if !isReady.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	g.Go(func() error {
		appLogger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	isReady.Store(true)
	appLogger.Info("Service components initialized and workers started. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case <-groupCtx.Done():
		appLogger.Error("A critical component failed, initiating shutdown", "error", groupCtx.Err())
	}

	isReady.Store(false)
	mainCancel()

	// In-flight work may complete within the grace period; after that the
	// process exits regardless.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Error during graceful shutdown of components", "error", err)
		}
	case <-time.After(cfg.ShutdownGracePeriod):
		appLogger.Warn("Shutdown grace period elapsed, exiting")
	}

	appLogger.Info("Service shutdown complete.")
}
