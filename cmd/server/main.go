package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/config"
	"github.com/ousmanedia/boutik/internal/repository"
	"github.com/ousmanedia/boutik/internal/repository/memory"
	"github.com/ousmanedia/boutik/internal/repository/mongodb"
	"github.com/ousmanedia/boutik/internal/scheduler"
	"github.com/ousmanedia/boutik/internal/server/handlers"
	"github.com/ousmanedia/boutik/internal/server/router"
	accountingsvc "github.com/ousmanedia/boutik/internal/service/accounting"
	balancesvc "github.com/ousmanedia/boutik/internal/service/balances"
	inventorysvc "github.com/ousmanedia/boutik/internal/service/inventory"
	reportingsvc "github.com/ousmanedia/boutik/internal/service/reporting"
	"github.com/ousmanedia/boutik/pkg/clients/notify"
	"github.com/ousmanedia/boutik/pkg/logger"
)

// engineStore groups the repository facets the services consume; both the
// MongoDB and in-memory stores satisfy all of them.
type engineStore interface {
	repository.TransactionRepository
	repository.ProductRepository
	repository.CustomerRepository
	repository.BankRepository
	repository.SnapshotRepository
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store engineStore
	if cfg.MongoDB.URI != "" {
		mongoStore, err := mongodb.NewStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		if err := mongoStore.EnsureIndexes(context.Background()); err != nil {
			baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
		}
		store = mongoStore
	} else {
		baseLogger.Warn("MONGODB_URI not set, using volatile in-memory store")
		store = memory.NewStore()
	}

	inventorySvc := inventorysvc.NewService(store, baseLogger.Named("svc.inventory"))
	balanceSvc := balancesvc.NewService(store, store, baseLogger.Named("svc.balances"))
	accountingSvc := accountingsvc.NewService(store, inventorySvc, balanceSvc, baseLogger.Named("svc.accounting"))
	reportingSvc := reportingsvc.NewService(store, store, store, store, store, cfg.Reporting.TopExpenseLimit, baseLogger.Named("svc.reporting"))

	var notifier notify.Client
	if webhookClient := notify.NewClient(cfg.Notify); webhookClient != nil {
		notifier = webhookClient
		baseLogger.Info("daily summary webhook enabled")
	} else {
		baseLogger.Info("no summary webhook configured, nightly snapshots stored only")
	}

	engineHandler := handlers.NewEngineHandler(accountingSvc, balanceSvc, inventorySvc, baseLogger.Named("handlers.engine"))
	reportHandler := handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.reports"))
	engine := router.New(engineHandler, reportHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, notifier, baseLogger.Named("scheduler"))
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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
