// Package jobs runs the periodic maintenance tasks of the survey
// platform: abandoning stale response sessions, closing surveys past
// their deadline and refreshing cached per-survey statistics.
package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/formkeeper/formkeeper/internal/core/config"
	"github.com/formkeeper/formkeeper/internal/core/store"
)

// Scheduler owns the cron runner and the task dependencies.
type Scheduler struct {
	cron      *cron.Cron
	surveys   *store.SurveyStore
	responses *store.ResponseStore
	cfg       *config.ServerConfig
	log       *slog.Logger
}

// NewScheduler wires the maintenance tasks onto their configured
// schedules. Panicking tasks are recovered and logged; a failing job
// must not take down the API process.
func NewScheduler(surveys *store.SurveyStore, responses *store.ResponseStore, cfg *config.ServerConfig, log *slog.Logger) (*Scheduler, error) {
	if surveys == nil {
		return nil, fmt.Errorf("surveys store cannot be nil")
	}
	if responses == nil {
		return nil, fmt.Errorf("responses store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "jobs")

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		surveys:   surveys,
		responses: responses,
		cfg:       cfg,
		log:       log,
	}

	if _, err := s.cron.AddFunc(cfg.CleanupSchedule, s.runCleanup); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
	}
	if _, err := s.cron.AddFunc(cfg.StatsRefreshSchedule, s.runStatsRefresh); err != nil {
		return nil, fmt.Errorf("invalid stats refresh schedule %q: %w", cfg.StatsRefreshSchedule, err)
	}

	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started",
		"cleanup_schedule", s.cfg.CleanupSchedule,
		"stats_refresh_schedule", s.cfg.StatsRefreshSchedule)
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// runCleanup abandons idle sessions and closes surveys past deadline.
func (s *Scheduler) runCleanup() {
	now := time.Now().UTC()

	abandoned, err := s.responses.AbandonStale(now, now.Add(-s.cfg.AbandonAfter))
	if err != nil {
		s.log.Error("failed to abandon stale responses", "error", err)
	} else if abandoned > 0 {
		s.log.Info("abandoned stale responses", "count", abandoned)
	}

	closed, err := s.surveys.CloseExpired(now)
	if err != nil {
		s.log.Error("failed to close expired surveys", "error", err)
	} else if closed > 0 {
		s.log.Info("closed expired surveys", "count", closed)
	}
}

// runStatsRefresh recomputes the cached aggregates of published surveys.
func (s *Scheduler) runStatsRefresh() {
	ids, err := s.surveys.PublishedIDs()
	if err != nil {
		s.log.Error("failed to list published surveys", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := s.responses.RefreshStats(id, now); err != nil {
			s.log.Error("failed to refresh survey stats", "survey_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		s.log.Info("refreshed survey stats", "surveys", len(ids))
	}
}
