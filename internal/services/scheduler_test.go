package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholloway/cricket-fantasy/internal/handicap"
	"github.com/mholloway/cricket-fantasy/internal/providers"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
)

// blockingFetcher parks inside ListFixtures until released, holding a
// pipeline run in flight for as long as a test needs.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	runs    int32
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (f *blockingFetcher) FetchScorecard(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("no scorecards in this test")
}

func (f *blockingFetcher) ListFixtures(context.Context, string, int) ([]providers.Fixture, error) {
	atomic.AddInt32(&f.runs, 1)
	f.once.Do(func() { close(f.entered) })
	<-f.release
	return nil, nil
}

func newSchedulerUnderTest(fetcher ScorecardFetcher) *SchedulerService {
	p := NewPipelineService(
		fetcher, newFakeMatchStore(), newMemRosterStore(), &memPerfStore{},
		scoring.DefaultRules(), nil, &recordingNotifier{}, silentLogger(),
		PipelineConfig{
			Clubs:      []string{"Northfield CC"},
			Season:     2026,
			AdjustMode: handicap.ModeDrift,
		},
	)
	return NewSchedulerService(p, nil, "@every 6h", time.Minute, silentLogger())
}

func TestRunOnceSkipsWhileRunInFlight(t *testing.T) {
	fetcher := newBlockingFetcher()
	s := newSchedulerUnderTest(fetcher)

	done := make(chan struct{})
	go func() {
		s.runOnce()
		close(done)
	}()

	select {
	case <-fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the pipeline")
	}

	// a second trigger while the first run is in flight must not start
	// another pipeline pass
	s.runOnce()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.runs))

	close(fetcher.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never finished")
	}

	// with the first run finished the next trigger goes through
	s.runOnce()
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.runs))
}

func TestSchedulerStatus(t *testing.T) {
	fetcher := newBlockingFetcher()
	close(fetcher.release)
	s := newSchedulerUnderTest(fetcher)

	status := s.Status()
	assert.Equal(t, false, status["is_running"])
	assert.Equal(t, false, status["run_in_flight"])
	assert.Equal(t, "@every 6h", status["schedule"])
	assert.NotContains(t, status, "last_run")

	s.runOnce()

	status = s.Status()
	require.Contains(t, status, "last_run")
	last, ok := status["last_run"].(*BatchSummary)
	require.True(t, ok)
	assert.Equal(t, 1, last.Clubs)
}
