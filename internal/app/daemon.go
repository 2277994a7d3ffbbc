package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/models"
)

type sweeper interface {
	RunSweep(ctx context.Context, now time.Time) models.SweepReport
}

type thresholdChecker interface {
	CheckAndAlert(ctx context.Context, now time.Time) models.AlertDecision
}

// Daemon drives the publication sweep and the storage threshold check on a
// ticker, for deployments without an external cron.
type Daemon struct {
	sweeper  sweeper
	checker  thresholdChecker
	interval time.Duration
	logger   *zap.Logger
	clock    func() time.Time
	stopChan chan struct{}
}

// NewDaemon builds a daemon. checker may be nil to run sweeps only.
func NewDaemon(sweeper sweeper, checker thresholdChecker, interval time.Duration, logger *zap.Logger) *Daemon {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daemon{
		sweeper:  sweeper,
		checker:  checker,
		interval: interval,
		logger:   logger,
		clock:    time.Now,
		stopChan: make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. The first tick runs
// immediately.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("publisher daemon started", zap.Duration("interval", d.interval))
	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tick(ctx)
		case <-d.stopChan:
			d.logger.Info("publisher daemon stopped")
			return
		case <-ctx.Done():
			d.logger.Info("publisher daemon cancelled")
			return
		}
	}
}

// Stop ends Run. It must be called at most once.
func (d *Daemon) Stop() {
	close(d.stopChan)
}

func (d *Daemon) tick(ctx context.Context) {
	now := d.clock().UTC()
	report := d.sweeper.RunSweep(ctx, now)
	if report.HasFailures() {
		d.logger.Warn("sweep recorded failures", zap.Int("errors", len(report.Errors)))
	}
	if d.checker != nil && ctx.Err() == nil {
		d.checker.CheckAndAlert(ctx, now)
	}
}
