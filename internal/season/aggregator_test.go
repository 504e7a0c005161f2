package season

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholloway/cricket-fantasy/internal/handicap"
	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/internal/scorecard"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
)

type fakeRosterStore struct {
	players map[string]*models.PlayerIdentity
}

func newFakeRosterStore(players ...*models.PlayerIdentity) *fakeRosterStore {
	s := &fakeRosterStore{players: make(map[string]*models.PlayerIdentity)}
	for _, p := range players {
		cp := *p
		s.players[p.ID] = &cp
	}
	return s
}

func (s *fakeRosterStore) ListByClub(club string) ([]models.PlayerIdentity, error) {
	var out []models.PlayerIdentity
	for _, p := range s.players {
		if p.Club == club {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeRosterStore) FindByExternalID(externalID string) (*models.PlayerIdentity, error) {
	for _, p := range s.players {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeRosterStore) Create(p *models.PlayerIdentity) error {
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *fakeRosterStore) Save(p *models.PlayerIdentity) error {
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *fakeRosterStore) Delete(p *models.PlayerIdentity) error {
	delete(s.players, p.ID)
	return nil
}

type fakePerformanceStore struct {
	records []models.PerformanceRecord
}

func (s *fakePerformanceStore) HasRecord(matchID, playerID string) (bool, error) {
	for _, rec := range s.records {
		if rec.MatchID == matchID && rec.PlayerID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePerformanceStore) Create(rec *models.PerformanceRecord) error {
	s.records = append(s.records, *rec)
	return nil
}

func (s *fakePerformanceStore) ListByPlayer(playerID string) ([]models.PerformanceRecord, error) {
	var out []models.PerformanceRecord
	for _, rec := range s.records {
		if rec.PlayerID == playerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakePerformanceStore) ReassignPlayer(fromPlayerID, toPlayerID string) error {
	for i := range s.records {
		if s.records[i].PlayerID == fromPlayerID {
			s.records[i].PlayerID = toPlayerID
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestAggregator(t *testing.T, club string, players ...*models.PlayerIdentity) (*Aggregator, *fakeRosterStore, *fakePerformanceStore) {
	t.Helper()
	rosterStore := newFakeRosterStore(players...)
	perfStore := &fakePerformanceStore{}
	agg, err := NewAggregator(club, rosterStore, perfStore, scoring.DefaultRules(), testLogger())
	require.NoError(t, err)
	return agg, rosterStore, perfStore
}

func battingPerf(name string, runs, balls int, dismissed bool) scorecard.RawPerformance {
	return scorecard.RawPerformance{
		Name: name,
		Batting: scorecard.BattingFigures{
			Runs:       runs,
			BallsFaced: balls,
			Dismissed:  dismissed,
		},
	}
}

func TestApplyPerformanceIsIdempotent(t *testing.T) {
	agg, _, perfStore := newTestAggregator(t, "Northfield CC")

	perf := battingPerf("J Carter", 50, 40, true)

	first, err := agg.ApplyPerformance("match-001", perf)
	require.NoError(t, err)
	require.NotNil(t, first.Record)
	assert.True(t, first.NewPlayer)
	assert.False(t, first.Duplicate)

	totalsAfterFirst, ok := agg.Totals(first.Player.ID)
	require.True(t, ok)

	// replaying the same match is a no-op, not a double count
	second, err := agg.ApplyPerformance("match-001", perf)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Record)

	totalsAfterSecond, ok := agg.Totals(first.Player.ID)
	require.True(t, ok)
	assert.Equal(t, totalsAfterFirst, totalsAfterSecond)
	assert.Len(t, perfStore.records, 1)
}

func TestApplyPerformanceSurvivesRestart(t *testing.T) {
	rosterStore := newFakeRosterStore()
	perfStore := &fakePerformanceStore{}
	rules := scoring.DefaultRules()

	agg, err := NewAggregator("Northfield CC", rosterStore, perfStore, rules, testLogger())
	require.NoError(t, err)

	perf := battingPerf("J Carter", 50, 40, true)
	first, err := agg.ApplyPerformance("match-001", perf)
	require.NoError(t, err)
	require.NotNil(t, first.Record)

	// a fresh aggregator over the same stores must still refuse the replay
	reloaded, err := NewAggregator("Northfield CC", rosterStore, perfStore, rules, testLogger())
	require.NoError(t, err)

	replay, err := reloaded.ApplyPerformance("match-001", perf)
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
	assert.Len(t, perfStore.records, 1)
}

func TestTotalsAreOrderIndependent(t *testing.T) {
	perfA := battingPerf("J Carter", 30, 25, true)
	perfB := battingPerf("J Carter", 80, 60, false)

	agg1, _, _ := newTestAggregator(t, "Northfield CC")
	resA, err := agg1.ApplyPerformance("match-001", perfA)
	require.NoError(t, err)
	_, err = agg1.ApplyPerformance("match-002", perfB)
	require.NoError(t, err)

	agg2, _, _ := newTestAggregator(t, "Northfield CC")
	_, err = agg2.ApplyPerformance("match-002", perfB)
	require.NoError(t, err)
	resA2, err := agg2.ApplyPerformance("match-001", perfA)
	require.NoError(t, err)

	t1, ok := agg1.Totals(resA.Player.ID)
	require.True(t, ok)
	t2, ok := agg2.Totals(resA2.Player.ID)
	require.True(t, ok)
	assert.Equal(t, t1, t2)
	assert.Equal(t, 2, t1.Matches)
	assert.Equal(t, 110, t1.Runs)
}

func TestFirstPerformanceClearsLegacyFlag(t *testing.T) {
	legacy := models.NewLegacyPlayerIdentity("James Carter", "Northfield CC", "")
	agg, rosterStore, _ := newTestAggregator(t, "Northfield CC", legacy)

	res, err := agg.ApplyPerformance("match-001", battingPerf("James Carter", 12, 20, true))
	require.NoError(t, err)
	assert.False(t, res.NewPlayer)
	assert.False(t, res.Player.IsLegacy)

	stored := rosterStore.players[legacy.ID]
	require.NotNil(t, stored)
	assert.False(t, stored.IsLegacy)

	// flag never flips back on subsequent matches
	res2, err := agg.ApplyPerformance("match-002", battingPerf("James Carter", 0, 3, true))
	require.NoError(t, err)
	assert.False(t, res2.Player.IsLegacy)
}

func TestResolvesFuzzyNameToExistingIdentity(t *testing.T) {
	known := models.NewPlayerIdentity("James Robert Carter", "Northfield CC", "")
	agg, _, _ := newTestAggregator(t, "Northfield CC", known)

	res, err := agg.ApplyPerformance("match-001", battingPerf("James Carter", 40, 30, true))
	require.NoError(t, err)
	assert.False(t, res.NewPlayer)
	assert.Equal(t, known.ID, res.Player.ID)
}

func TestExternalIDOfAnotherClubIsRejected(t *testing.T) {
	rival := models.NewPlayerIdentity("J Carter", "Ashwell Park", "mc-778")
	rosterStore := newFakeRosterStore(rival)
	perfStore := &fakePerformanceStore{}

	agg, err := NewAggregator("Northfield CC", rosterStore, perfStore, scoring.DefaultRules(), testLogger())
	require.NoError(t, err)

	perf := battingPerf("J Carter", 40, 30, true)
	perf.ExternalID = "mc-778"

	_, err = agg.ApplyPerformance("match-001", perf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClubMismatch)
	assert.Empty(t, perfStore.records)
}

func TestExternalIDIsLearnedOnFirstSighting(t *testing.T) {
	known := models.NewPlayerIdentity("James Carter", "Northfield CC", "")
	agg, rosterStore, _ := newTestAggregator(t, "Northfield CC", known)

	perf := battingPerf("James Carter", 10, 15, true)
	perf.ExternalID = "mc-2041"

	res, err := agg.ApplyPerformance("match-001", perf)
	require.NoError(t, err)
	assert.Equal(t, "mc-2041", res.Player.ExternalID)
	assert.Equal(t, "mc-2041", rosterStore.players[known.ID].ExternalID)
}

func TestMergePlayersReassignsRecords(t *testing.T) {
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	survivor := models.NewPlayerIdentity("James Carter", "Northfield CC", "")
	survivor.CreatedAt = created
	duplicate := models.NewPlayerIdentity("Jim Carter", "Northfield CC", "mc-99")
	duplicate.CreatedAt = created.Add(time.Hour)

	agg, rosterStore, perfStore := newTestAggregator(t, "Northfield CC", survivor, duplicate)

	_, err := agg.ApplyPerformance("match-001", battingPerf("James Carter", 50, 40, false))
	require.NoError(t, err)
	_, err = agg.ApplyPerformance("match-002", battingPerf("Jim Carter", 30, 20, true))
	require.NoError(t, err)

	require.NoError(t, agg.MergePlayers(duplicate.ID, survivor.ID))

	totals, ok := agg.Totals(survivor.ID)
	require.True(t, ok)
	assert.Equal(t, 2, totals.Matches)
	assert.Equal(t, 80, totals.Runs)

	_, ok = agg.Totals(duplicate.ID)
	assert.False(t, ok)
	assert.Nil(t, rosterStore.players[duplicate.ID])

	// the duplicate's external id survives the merge
	assert.Equal(t, "mc-99", rosterStore.players[survivor.ID].ExternalID)

	// reassigned matches still count as already applied
	for _, rec := range perfStore.records {
		assert.Equal(t, survivor.ID, rec.PlayerID)
	}
	replay, err := agg.ApplyPerformance("match-002", battingPerf("James Carter", 30, 20, true))
	require.NoError(t, err)
	assert.True(t, replay.Duplicate)
}

func TestMergePlayersValidation(t *testing.T) {
	a := models.NewPlayerIdentity("A Player", "Northfield CC", "")
	agg, _, _ := newTestAggregator(t, "Northfield CC", a)

	assert.Error(t, agg.MergePlayers(a.ID, a.ID))
	assert.Error(t, agg.MergePlayers(a.ID, "missing-id"))
}

func TestAdjustMultipliersPersistsChanges(t *testing.T) {
	agg, rosterStore, _ := newTestAggregator(t, "Northfield CC")

	low, err := agg.ApplyPerformance("match-001", battingPerf("A Low", 5, 10, true))
	require.NoError(t, err)
	mid, err := agg.ApplyPerformance("match-001", battingPerf("B Mid", 30, 30, true))
	require.NoError(t, err)
	high, err := agg.ApplyPerformance("match-001", battingPerf("C High", 90, 60, false))
	require.NoError(t, err)

	changes, err := agg.AdjustMultipliers(handicap.ModeInitial, handicap.DefaultDriftRate)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.InDelta(t, handicap.HighBound, rosterStore.players[low.Player.ID].Multiplier, 1e-9)
	assert.InDelta(t, handicap.Neutral, rosterStore.players[mid.Player.ID].Multiplier, 1e-9)
	assert.InDelta(t, handicap.LowBound, rosterStore.players[high.Player.ID].Multiplier, 1e-9)

	// the cached registry picks up new multipliers for subsequent scoring
	for _, p := range agg.Players() {
		if p.ID == high.Player.ID {
			assert.InDelta(t, handicap.LowBound, p.Multiplier, 1e-9)
		}
	}
}
