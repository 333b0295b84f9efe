// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"gigwallet/internal/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Reconciler is the job the scheduler drives.
type Reconciler interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
}

// NewScheduler validates schedule (standard five-field cron, UTC) up front so
// a bad value fails at startup.
func NewScheduler(reconciler Reconciler, schedule string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, reconciler: reconciler, schedule: schedule}, nil
}

// Start registers the reconciliation job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("[CRON] reconciliation scheduled")
	return nil
}

// RunOnce runs one reconciliation pass and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	log.Info("[CRON] reconciliation started")
	report, err := s.reconciler.Run(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] reconciliation failed")
		return
	}
	entry := log.WithFields(log.Fields{"wallets": report.Wallets, "discrepancies": len(report.Discrepancies)})
	if len(report.Discrepancies) > 0 {
		entry.Error("[CRON] reconciliation found discrepancies")
		return
	}
	entry.Info("[CRON] reconciliation clean")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("[CRON] scheduler stopped")
}
