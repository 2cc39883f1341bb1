package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/py-swift/wheelsite/internal/artifact"
	"github.com/py-swift/wheelsite/internal/wheels"
)

// DatabaseName is the packages database artifact refreshed on schedule.
const DatabaseName = "packages.db"

// Refresher periodically re-fetches the packages database into the served
// site so long-running previews pick up new releases without a rebuild.
type Refresher struct {
	fetcher  *artifact.Fetcher
	tag      string
	siteDir  string
	interval time.Duration

	scheduler gocron.Scheduler
}

// NewRefresher creates a refresher; a zero interval disables it.
func NewRefresher(fetcher *artifact.Fetcher, tag, siteDir string, interval time.Duration) *Refresher {
	if interval <= 0 || tag == "" {
		return nil
	}
	return &Refresher{
		fetcher:  fetcher,
		tag:      tag,
		siteDir:  siteDir,
		interval: interval,
	}
}

// Start schedules the refresh job.
func (r *Refresher) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.refresh(ctx) }),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}
	r.scheduler = scheduler
	scheduler.Start()
	slog.Info("Scheduled database refresh", "interval", r.interval, "tag", r.tag)
	return nil
}

// Stop shuts the scheduler down.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		if err := r.scheduler.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown failed", "error", err)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	dest := filepath.Join(r.siteDir, wheels.AssetsDirName, DatabaseName)
	outcome, err := r.fetcher.Fetch(ctx, r.tag, DatabaseName, dest)
	if err != nil {
		slog.Warn("Database refresh failed", "tag", r.tag, "error", err)
		return
	}
	slog.Info("Database refreshed", "tag", r.tag, "outcome", string(outcome))
}
