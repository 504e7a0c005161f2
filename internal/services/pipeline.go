package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mholloway/cricket-fantasy/internal/handicap"
	"github.com/mholloway/cricket-fantasy/internal/metrics"
	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/internal/providers"
	"github.com/mholloway/cricket-fantasy/internal/scorecard"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
	"github.com/mholloway/cricket-fantasy/internal/season"
)

// ScorecardFetcher is the pipeline's view of the match centre.
type ScorecardFetcher interface {
	FetchScorecard(ctx context.Context, matchRef string) ([]byte, error)
	ListFixtures(ctx context.Context, club string, seasonYear int) ([]providers.Fixture, error)
}

// MatchStore tracks which fixtures have been processed.
type MatchStore interface {
	Upsert(m *models.Match) error
	ListPending(club string) ([]models.Match, error)
	MarkProcessed(ref string) error
	MarkSkipped(ref, reason string) error
}

// PipelineConfig carries the tunables for a pipeline run.
type PipelineConfig struct {
	Clubs          []string
	Season         int
	Concurrency    int
	ExtractTimeout time.Duration
	AdjustMode     handicap.Mode
	DriftRate      float64
	OperatorPhone  string
}

// BatchSummary reports what one pipeline run did across all clubs.
type BatchSummary struct {
	RunID                string        `json:"run_id"`
	StartedAt            time.Time     `json:"started_at"`
	Duration             time.Duration `json:"duration"`
	Clubs                int           `json:"clubs"`
	MatchesProcessed     int           `json:"matches_processed"`
	MatchesSkipped       int           `json:"matches_skipped"`
	PerformancesApplied  int           `json:"performances_applied"`
	DuplicatesIgnored    int           `json:"duplicates_ignored"`
	NewPlayers           int           `json:"new_players"`
	AmbiguousResolutions int           `json:"ambiguous_resolutions"`
	ClubMismatches       int           `json:"club_mismatches"`
	MultiplierChanges    int           `json:"multiplier_changes"`
	Errors               []string      `json:"errors,omitempty"`
}

// Text renders the summary as a short operator message.
func (s *BatchSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scoring run: %d matches processed, %d skipped, %d performances across %d clubs.",
		s.MatchesProcessed, s.MatchesSkipped, s.PerformancesApplied, s.Clubs)
	if s.NewPlayers > 0 {
		fmt.Fprintf(&b, " %d new players.", s.NewPlayers)
	}
	if s.AmbiguousResolutions > 0 {
		fmt.Fprintf(&b, " %d ambiguous name matches need review.", s.AmbiguousResolutions)
	}
	if s.MultiplierChanges > 0 {
		fmt.Fprintf(&b, " %d multipliers updated.", s.MultiplierChanges)
	}
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, " %d errors.", len(s.Errors))
	}
	return b.String()
}

// PipelineService runs the full batch: sync fixtures, fetch and extract
// scorecards concurrently, then score and aggregate each club serially.
type PipelineService struct {
	fetcher   ScorecardFetcher
	matches   MatchStore
	roster    season.RosterStore
	perfs     season.PerformanceStore
	extractor *scorecard.Extractor
	rules     scoring.RuleSet
	metrics   *metrics.Metrics
	notifier  Notifier
	logger    *logrus.Logger
	cfg       PipelineConfig
}

// NewPipelineService creates a pipeline over the given stores and fetcher.
func NewPipelineService(
	fetcher ScorecardFetcher,
	matchStore MatchStore,
	rosterStore season.RosterStore,
	perfStore season.PerformanceStore,
	rules scoring.RuleSet,
	m *metrics.Metrics,
	notifier Notifier,
	logger *logrus.Logger,
	cfg PipelineConfig,
) *PipelineService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 30 * time.Second
	}
	return &PipelineService{
		fetcher:   fetcher,
		matches:   matchStore,
		roster:    rosterStore,
		perfs:     perfStore,
		extractor: scorecard.NewExtractor(logger),
		rules:     rules,
		metrics:   m,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes one full batch over every configured club.
func (s *PipelineService) Run(ctx context.Context) (*BatchSummary, error) {
	summary := &BatchSummary{RunID: uuid.NewString(), StartedAt: time.Now(), Clubs: len(s.cfg.Clubs)}
	s.logger.Infof("Starting scoring run %s for %d clubs", summary.RunID, len(s.cfg.Clubs))

	for _, club := range s.cfg.Clubs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.runClub(ctx, club, summary); err != nil {
			s.logger.Errorf("Club %s failed: %v", club, err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", club, err))
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	if s.metrics != nil {
		s.metrics.BatchDuration.Observe(summary.Duration.Seconds())
		s.metrics.LastRunTimestamp.SetToCurrentTime()
	}

	s.logger.Infof("Scoring run complete in %v: %d processed, %d skipped, %d performances",
		summary.Duration, summary.MatchesProcessed, summary.MatchesSkipped, summary.PerformancesApplied)

	if s.notifier != nil && s.cfg.OperatorPhone != "" {
		if err := s.notifier.SendSummary(s.cfg.OperatorPhone, summary.Text()); err != nil {
			s.logger.Warnf("Failed to send run summary: %v", err)
		}
	}

	return summary, nil
}

type extraction struct {
	match models.Match
	perfs []scorecard.RawPerformance
	diags scorecard.Diagnostics
	err   error
}

func (s *PipelineService) runClub(ctx context.Context, club string, summary *BatchSummary) error {
	s.syncFixtures(ctx, club)

	pending, err := s.matches.ListPending(club)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		s.logger.Infof("No pending matches for %s", club)
		return nil
	}
	s.logger.Infof("Processing %d pending matches for %s", len(pending), club)

	// fetch and extract concurrently; pending is already in stable
	// date-then-ref order and results keep that order, so aggregation
	// below is deterministic
	results := make([]extraction, len(pending))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, m models.Match) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.extract(ctx, club, m)
		}(i, pending[i])
	}
	wg.Wait()

	agg, err := season.NewAggregator(club, s.roster, s.perfs, s.rules, s.logger)
	if err != nil {
		return err
	}

	for _, res := range results {
		s.apply(agg, res, club, summary)
	}

	changes, err := agg.AdjustMultipliers(s.cfg.AdjustMode, s.cfg.DriftRate)
	if err != nil {
		return fmt.Errorf("handicap pass failed: %w", err)
	}
	for _, ch := range changes {
		if ch.Old != ch.New {
			summary.MultiplierChanges++
			if s.metrics != nil {
				s.metrics.MultiplierChanges.WithLabelValues(club).Inc()
			}
		}
	}

	return nil
}

// syncFixtures records newly published fixtures as pending matches. A feed
// outage is not fatal; the run continues with whatever is already pending.
func (s *PipelineService) syncFixtures(ctx context.Context, club string) {
	fixtures, err := s.fetcher.ListFixtures(ctx, club, s.cfg.Season)
	if err != nil {
		s.logger.Warnf("Fixture sync failed for %s: %v", club, err)
		return
	}
	for _, f := range fixtures {
		m := &models.Match{
			Ref:         f.Ref,
			Club:        club,
			Opponent:    f.Opponent,
			Competition: f.Competition,
			Date:        f.Date,
			Status:      models.MatchPending,
		}
		if err := s.matches.Upsert(m); err != nil {
			s.logger.Warnf("Failed to record fixture %s: %v", f.Ref, err)
		}
	}
}

func (s *PipelineService) extract(ctx context.Context, club string, m models.Match) extraction {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	doc, err := s.fetcher.FetchScorecard(fetchCtx, m.Ref)
	if err != nil {
		return extraction{match: m, err: err}
	}

	perfs, diags := s.extractor.Extract(doc, scorecard.Context{
		MatchRef:    m.Ref,
		Club:        club,
		Competition: m.Competition,
	})
	return extraction{match: m, perfs: perfs, diags: diags}
}

func (s *PipelineService) apply(agg *season.Aggregator, res extraction, club string, summary *BatchSummary) {
	ref := res.match.Ref

	if res.err != nil {
		s.skip(ref, club, summary, res.err.Error())
		return
	}
	if res.diags.Failed() {
		s.skip(ref, club, summary, res.diags.Reason)
		return
	}
	for _, w := range res.diags.Warnings {
		s.logger.Warnf("Match %s: %s", ref, w)
	}

	for _, raw := range res.perfs {
		result, err := agg.ApplyPerformance(ref, raw)
		if errors.Is(err, season.ErrClubMismatch) {
			// misattributed performance: reject it, keep the rest of
			// the match
			s.logger.Errorf("Match %s: %v", ref, err)
			summary.ClubMismatches++
			continue
		}
		if err != nil {
			s.skip(ref, club, summary, err.Error())
			return
		}

		switch {
		case result.Duplicate:
			summary.DuplicatesIgnored++
			if s.metrics != nil {
				s.metrics.DuplicatesIgnored.WithLabelValues(club).Inc()
			}
		default:
			summary.PerformancesApplied++
			if s.metrics != nil {
				s.metrics.PerformancesApplied.WithLabelValues(club).Inc()
			}
		}
		if result.NewPlayer {
			summary.NewPlayers++
			if s.metrics != nil {
				s.metrics.NewPlayers.WithLabelValues(club).Inc()
			}
		}
		if result.Ambiguous {
			summary.AmbiguousResolutions++
			if s.metrics != nil {
				s.metrics.AmbiguousResolutions.WithLabelValues(club).Inc()
			}
		}
	}

	if err := s.matches.MarkProcessed(ref); err != nil {
		s.logger.Errorf("Failed to mark match %s processed: %v", ref, err)
		return
	}
	summary.MatchesProcessed++
	if s.metrics != nil {
		s.metrics.MatchesProcessed.WithLabelValues(club).Inc()
	}
}

func (s *PipelineService) skip(ref, club string, summary *BatchSummary, reason string) {
	s.logger.Warnf("Skipping match %s: %s", ref, reason)
	if err := s.matches.MarkSkipped(ref, reason); err != nil {
		s.logger.Errorf("Failed to mark match %s skipped: %v", ref, err)
	}
	summary.MatchesSkipped++
	if s.metrics != nil {
		s.metrics.MatchesSkipped.WithLabelValues(club).Inc()
	}
}
