package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/config"
	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/metrics"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
	"github.com/mamadbah2/sheepfold/internal/service/whatsapp"
)

const (
	jobStageRefresh = "stage_refresh"
	jobFeedReport   = "feed_report"
)

// TenantDirectory enumerates tenant stores and opens them.
type TenantDirectory interface {
	List() ([]string, error)
	WithTenant(ctx context.Context, userID string, fn func(t *sqlite.Tenant) error) error
}

// ReportPublisher builds and ships the daily feed report of a tenant.
type ReportPublisher interface {
	PublishFeedReport(ctx context.Context, userID string) (models.FeedReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	tenants      TenantDirectory
	reports      ReportPublisher
	messagingSvc whatsapp.MessagingService
	cfg          config.ReportingConfig
	managerID    string
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a new scheduler instance. messagingSvc may be nil, in
// which case reports are published without a WhatsApp notification.
func NewScheduler(cfg config.ReportingConfig, managerID string, tenants TenantDirectory, reports ReportPublisher, messagingSvc whatsapp.MessagingService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		tenants:      tenants,
		reports:      reports,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		managerID:    managerID,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("stage_refresh", s.cfg.StageRefreshCron),
		zap.String("feed_report", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.StageRefreshCron, s.runStageRefresh); err != nil {
		return fmt.Errorf("schedule stage refresh: %w", err)
	}

	if s.cfg.FarmOwnerID != "" {
		if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runFeedReport); err != nil {
			return fmt.Errorf("schedule feed report: %w", err)
		}
	} else {
		s.logger.Warn("FARM_OWNER_ID not set, daily feed report disabled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RefreshStages recomputes the age-derived stage of every sheep in every tenant.
// A failing tenant is logged and skipped.
func (s *Scheduler) RefreshStages(ctx context.Context) (int, error) {
	ids, err := s.tenants.List()
	if err != nil {
		return 0, err
	}

	asOf := s.now()
	total := 0
	for _, id := range ids {
		err := s.tenants.WithTenant(ctx, id, func(t *sqlite.Tenant) error {
			changed, err := t.Farm().RefreshDerivedStages(ctx, asOf)
			if err != nil {
				return err
			}
			total += changed
			if changed > 0 {
				s.logger.Info("stages refreshed", zap.String("user_id", id), zap.Int("changed", changed))
			}
			return nil
		})
		if err != nil {
			s.logger.Error("stage refresh failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return total, nil
}

// SendDailyReport publishes the farm owner's feed report and notifies the manager.
func (s *Scheduler) SendDailyReport(ctx context.Context) error {
	report, err := s.reports.PublishFeedReport(ctx, s.cfg.FarmOwnerID)
	if err != nil {
		return err
	}

	if s.messagingSvc == nil || s.managerID == "" {
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      s.managerID,
		Message: report.Summary,
	}
	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send feed report: %w", err)
	}
	return nil
}

func (s *Scheduler) runStageRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	changed, err := s.RefreshStages(ctx)
	if err != nil {
		metrics.ScheduledJobs.WithLabelValues(jobStageRefresh, metrics.OutcomeError).Inc()
		s.logger.Error("failed to refresh stages", zap.Error(err))
		return
	}

	metrics.ScheduledJobs.WithLabelValues(jobStageRefresh, metrics.OutcomeOK).Inc()
	s.logger.Info("stage refresh completed", zap.Int("changed", changed))
}

func (s *Scheduler) runFeedReport() {
	s.logger.Info("generating daily feed report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.SendDailyReport(ctx); err != nil {
		metrics.ScheduledJobs.WithLabelValues(jobFeedReport, metrics.OutcomeError).Inc()
		s.logger.Error("failed to send daily feed report", zap.Error(err))
		return
	}

	metrics.ScheduledJobs.WithLabelValues(jobFeedReport, metrics.OutcomeOK).Inc()
	s.logger.Info("daily feed report sent successfully")
}
