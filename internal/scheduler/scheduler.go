package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ousmanedia/boutik/internal/config"
	"github.com/ousmanedia/boutik/internal/service/reporting"
	"github.com/ousmanedia/boutik/pkg/clients/notify"
)

// Scheduler runs the nightly snapshot job: for every owner present in the
// ledger it persists the day's P&L and optionally pushes a summary to the
// configured webhook. The job only calls the engine's read-only report
// queries.
type Scheduler struct {
	cron         *cron.Cron
	reportingSvc *reporting.Service
	notifier     notify.Client
	cfg          config.ReportingConfig
	location     *time.Location
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. The notifier may be nil,
// disabling summary delivery.
func NewScheduler(cfg config.ReportingConfig, reportingSvc *reporting.Service, notifier notify.Client, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(location)),
		reportingSvc: reportingSvc,
		notifier:     notifier,
		cfg:          cfg,
		location:     location,
		logger:       logger,
	}, nil
}

// Start registers the snapshot job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailySnapshots); err != nil {
		return fmt.Errorf("failed to schedule daily snapshots: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runDailySnapshots() {
	s.logger.Info("generating daily snapshots")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	day := time.Now().In(s.location)
	snapshots, err := s.reportingSvc.SnapshotAllOwners(ctx, day)
	if err != nil {
		s.logger.Error("failed to generate daily snapshots", zap.Error(err))
		return
	}
	s.logger.Info("daily snapshots stored", zap.Int("owners", len(snapshots)))

	if s.notifier == nil {
		return
	}

	for _, snapshot := range snapshots {
		summary := notify.DailySummary{
			OwnerID:       snapshot.OwnerID,
			Date:          snapshot.Date.Format("2006-01-02"),
			TotalSales:    snapshot.Report.TotalSales,
			TotalExpenses: snapshot.Report.TotalExpenses,
			NetProfit:     snapshot.Report.NetProfit,
			Message: fmt.Sprintf("Daily summary %s: sales %.2f, expenses %.2f, net profit %.2f.",
				snapshot.Date.Format("2006-01-02"), snapshot.Report.TotalSales, snapshot.Report.TotalExpenses, snapshot.Report.NetProfit),
		}
		if err := s.notifier.PostDailySummary(ctx, summary); err != nil {
			s.logger.Error("failed to deliver daily summary", zap.String("owner_id", snapshot.OwnerID), zap.Error(err))
		}
	}
}
