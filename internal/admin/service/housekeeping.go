package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultHousekeepingSchedule  = "@daily"
	DefaultOperationLogRetention = 90 * 24 * time.Hour
	DefaultExportRetention       = 7 * 24 * time.Hour
)

// HousekeepingService prunes old operation logs and export files on a cron
// schedule so neither grows without bound.
type HousekeepingService struct {
	OperationLogs *OperationLogService
	Exports       *ExportService
	Logger        *slog.Logger

	Schedule              string
	OperationLogRetention time.Duration // zero disables pruning
	ExportRetention       time.Duration // zero disables pruning

	// Now defaults to time.Now.
	Now func() time.Time

	cron *cron.Cron
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start schedules the cleanup job. An invalid schedule is reported here
// rather than at the first tick.
func (s *HousekeepingService) Start() error {
	schedule := s.Schedule
	if schedule == "" {
		schedule = DefaultHousekeepingSchedule
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(s.Logger.Handler(), slog.LevelDebug))))
	if _, err := c.AddFunc(schedule, func() { s.Cleanup(context.Background()) }); err != nil {
		return fmt.Errorf("invalid housekeeping schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	s.Logger.Info("housekeeping service started", "schedule", schedule)
	return nil
}

// Stop waits for a running cleanup to finish.
func (s *HousekeepingService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Logger.Info("housekeeping service stopped")
}

// Cleanup runs every pruning step once. Steps are independent; a failure in
// one does not skip the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.now()
	s.Logger.Info("starting housekeeping cleanup")

	if s.OperationLogs != nil {
		n, err := s.OperationLogs.Prune(ctx, now, s.OperationLogRetention)
		if err != nil {
			s.Logger.Error("failed to prune operation logs", "err", err)
		} else {
			s.Logger.Debug("pruned operation logs", "deleted", n)
		}
	}

	if s.Exports != nil {
		n, err := s.Exports.Prune(ctx, now, s.ExportRetention)
		if err != nil {
			s.Logger.Error("failed to prune export tasks", "err", err)
		} else {
			s.Logger.Debug("pruned export tasks", "deleted", n)
		}
	}

	s.Logger.Info("housekeeping cleanup completed")
}
