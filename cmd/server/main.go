package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/config"
	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/mongodb"
	"github.com/mamadbah2/sheepfold/internal/repository/sheets"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
	"github.com/mamadbah2/sheepfold/internal/scheduler"
	"github.com/mamadbah2/sheepfold/internal/server/handlers"
	"github.com/mamadbah2/sheepfold/internal/server/router"
	commandsvc "github.com/mamadbah2/sheepfold/internal/service/commands"
	reportingsvc "github.com/mamadbah2/sheepfold/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/sheepfold/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/sheepfold/pkg/clients/whatsapp"
	"github.com/mamadbah2/sheepfold/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	defaults := models.DefaultFarmDefaults()

	provisioner, err := sqlite.NewProvisioner(cfg.Storage.DataDir, defaults, baseLogger.Named("repo.sqlite"))
	if err != nil {
		baseLogger.Fatal("failed to init tenant provisioner", zap.Error(err))
	}
	defer func() {
		if err := provisioner.Close(); err != nil {
			baseLogger.Error("failed to close tenant stores", zap.Error(err))
		}
	}()

	if owner := cfg.Reporting.FarmOwnerID; owner != "" {
		if _, err := provisioner.Provision(context.Background(), owner); err != nil {
			baseLogger.Fatal("failed to provision farm owner store", zap.String("user_id", owner), zap.Error(err))
		}
	}

	var archive mongodb.Repository
	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
	} else {
		baseLogger.Warn("MONGODB_URI missing, feed report archive disabled")
	}

	var sheet sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheet = sheetsRepo
	} else {
		baseLogger.Warn("google sheets not configured, feed plan export disabled")
	}

	reportingSvc := reportingsvc.NewService(provisioner, archive, sheet, defaults, baseLogger.Named("svc.reporting"))

	var (
		messagingSvc   whatsappsvc.MessagingService
		webhookHandler *handlers.WebhookHandler
	)
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(provisioner, cfg.Reporting.FarmOwnerID, defaults, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger.Named("handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp not configured, webhook and notifications disabled")
	}

	engine := router.New(router.Handlers{
		Tenant:  handlers.NewTenantHandler(provisioner, baseLogger.Named("handlers.tenant")),
		Feed:    handlers.NewFeedHandler(defaults, baseLogger.Named("handlers.feed")),
		Flock:   handlers.NewFlockHandler(baseLogger.Named("handlers.flock")),
		Reports: handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports")),
		Webhook: webhookHandler,
	}, provisioner, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, cfg.WhatsApp.ManagerID, provisioner, reportingSvc, messagingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("data_dir", cfg.Storage.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
