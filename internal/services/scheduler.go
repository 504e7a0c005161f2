package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerService runs the scoring pipeline on a cron schedule.
type SchedulerService struct {
	pipeline   *PipelineService
	cache      *CacheService
	logger     *logrus.Logger
	cron       *cron.Cron
	schedule   string
	runTimeout time.Duration
	mu         sync.Mutex
	isRunning  bool
	jobRunning bool
	lastRun    *BatchSummary
}

// NewSchedulerService creates a scheduler for the given pipeline.
// schedule uses cron syntax or the @every form, e.g. "@every 6h".
func NewSchedulerService(pipeline *PipelineService, cache *CacheService, schedule string, runTimeout time.Duration, logger *logrus.Logger) *SchedulerService {
	return &SchedulerService{
		pipeline:   pipeline,
		cache:      cache,
		logger:     logger,
		cron:       cron.New(),
		schedule:   schedule,
		runTimeout: runTimeout,
	}
}

// Start begins the scheduled runs and triggers an initial run in the
// background.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	go s.runOnce()

	s.logger.Infof("Scheduler started (%s)", s.schedule)
	return nil
}

// Stop halts the scheduled runs, waiting for an in-flight run to finish.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// runOnce executes a single pipeline run. Runs never overlap: if a tight
// schedule fires while the previous run is still in flight, the new run is
// skipped, keeping per-cohort application serialized.
func (s *SchedulerService) runOnce() {
	s.mu.Lock()
	if s.jobRunning {
		s.mu.Unlock()
		s.logger.Warn("Previous pipeline run still in flight, skipping this run")
		return
	}
	s.jobRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.jobRunning = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	summary, err := s.pipeline.Run(ctx)
	if err != nil {
		s.logger.Errorf("Scheduled run failed: %v", err)
	}

	if summary != nil && s.cache != nil {
		cacheCtx := context.Background()
		if err := s.cache.SetWithRetry(cacheCtx, BatchSummaryCacheKey(summary.RunID), summary, 7*24*time.Hour, 3); err != nil {
			s.logger.Warnf("Failed to cache run summary: %v", err)
		}
		if err := s.cache.SetWithRetry(cacheCtx, LastBatchSummaryCacheKey(), summary, 7*24*time.Hour, 3); err != nil {
			s.logger.Warnf("Failed to cache latest run summary: %v", err)
		}
	}

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()
}

// Status returns the current scheduler state.
func (s *SchedulerService) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	status := map[string]interface{}{
		"is_running":    s.isRunning,
		"run_in_flight": s.jobRunning,
		"schedule":      s.schedule,
		"next_runs":     nextRuns,
	}
	if s.lastRun != nil {
		status["last_run"] = s.lastRun
	}
	return status
}
