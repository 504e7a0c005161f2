package season

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mholloway/cricket-fantasy/internal/handicap"
	"github.com/mholloway/cricket-fantasy/internal/models"
	"github.com/mholloway/cricket-fantasy/internal/roster"
	"github.com/mholloway/cricket-fantasy/internal/scorecard"
	"github.com/mholloway/cricket-fantasy/internal/scoring"
)

// ErrClubMismatch marks a performance whose resolved identity belongs to a
// different club's roster. Such performances are rejected and reported, never
// silently misfiled.
var ErrClubMismatch = errors.New("performance resolves to a different club's roster")

// RosterStore is the aggregator's view of the player registry.
type RosterStore interface {
	ListByClub(club string) ([]models.PlayerIdentity, error)
	FindByExternalID(externalID string) (*models.PlayerIdentity, error)
	Create(p *models.PlayerIdentity) error
	Save(p *models.PlayerIdentity) error
	Delete(p *models.PlayerIdentity) error
}

// PerformanceStore is the aggregator's view of the append-only record store.
type PerformanceStore interface {
	HasRecord(matchID, playerID string) (bool, error)
	Create(rec *models.PerformanceRecord) error
	ListByPlayer(playerID string) ([]models.PerformanceRecord, error)
	ReassignPlayer(fromPlayerID, toPlayerID string) error
}

// ApplyResult reports what a single ApplyPerformance call did.
type ApplyResult struct {
	Player    *models.PlayerIdentity
	Record    *models.PerformanceRecord
	NewPlayer bool
	Duplicate bool
	Ambiguous bool
}

// Aggregator owns one club's identity registry and season totals for the
// duration of a batch run. All mutations are serialized behind its lock;
// construct one per cohort, never share a process-wide instance.
type Aggregator struct {
	club     string
	roster   RosterStore
	perfs    PerformanceStore
	rules    scoring.RuleSet
	resolver *roster.Resolver
	logger   *logrus.Logger

	mu      sync.Mutex
	players []models.PlayerIdentity
	totals  map[string]*SeasonTotals
	applied map[string]struct{}
}

// NewAggregator loads the club's registry and rebuilds season totals from the
// performance store.
func NewAggregator(club string, rosterStore RosterStore, perfStore PerformanceStore, rules scoring.RuleSet, logger *logrus.Logger) (*Aggregator, error) {
	players, err := rosterStore.ListByClub(club)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for %s: %w", club, err)
	}

	a := &Aggregator{
		club:     club,
		roster:   rosterStore,
		perfs:    perfStore,
		rules:    rules,
		resolver: roster.NewResolver(logger),
		logger:   logger,
		players:  players,
		totals:   make(map[string]*SeasonTotals),
		applied:  make(map[string]struct{}),
	}

	for i := range players {
		records, err := perfStore.ListByPlayer(players[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load performances for %s: %w", players[i].Name, err)
		}
		if len(records) > 0 {
			a.totals[players[i].ID] = totalsFromRecords(players[i].ID, records)
		}
		for _, rec := range records {
			a.applied[appliedKey(rec.MatchID, rec.PlayerID)] = struct{}{}
		}
	}

	return a, nil
}

// Club returns the cohort this aggregator owns.
func (a *Aggregator) Club() string { return a.club }

// ApplyPerformance resolves, scores and commits one raw performance tuple.
// Replaying an already-recorded (match, player) pair is a defined no-op; the
// result reports Duplicate and totals are untouched.
func (a *Aggregator) ApplyPerformance(matchID string, raw scorecard.RawPerformance) (*ApplyResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := &ApplyResult{}

	// an external id pinned to another club's roster is a hard reject
	if raw.ExternalID != "" {
		known, err := a.roster.FindByExternalID(raw.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("external id lookup failed for %q: %w", raw.Name, err)
		}
		if known != nil && known.Club != a.club {
			return nil, fmt.Errorf("%w: %q (id %s) is registered with %s",
				ErrClubMismatch, raw.Name, raw.ExternalID, known.Club)
		}
	}

	player, err := a.resolveOrCreate(raw, result)
	if err != nil {
		return nil, err
	}
	result.Player = player

	key := appliedKey(matchID, player.ID)
	if _, seen := a.applied[key]; seen {
		result.Duplicate = true
		return result, nil
	}
	recorded, err := a.perfs.HasRecord(matchID, player.ID)
	if err != nil {
		return nil, fmt.Errorf("idempotence check failed for %s/%s: %w", matchID, player.Name, err)
	}
	if recorded {
		a.applied[key] = struct{}{}
		result.Duplicate = true
		return result, nil
	}

	base, breakdown := scoring.Score(raw, a.rules)
	record := models.NewPerformanceRecord(matchID, player, raw, base, breakdown, player.Multiplier)
	if err := a.perfs.Create(record); err != nil {
		return nil, fmt.Errorf("failed to store performance for %s: %w", player.Name, err)
	}
	a.applied[key] = struct{}{}
	result.Record = record

	if err := a.recomputeTotals(player.ID); err != nil {
		return nil, err
	}

	// first observed performance permanently clears the legacy flag
	if player.IsLegacy {
		player.IsLegacy = false
		if err := a.roster.Save(player); err != nil {
			return nil, fmt.Errorf("failed to clear legacy flag for %s: %w", player.Name, err)
		}
		a.logger.Infof("Legacy player %s (%s) activated by match %s", player.Name, a.club, matchID)
	}

	return result, nil
}

func (a *Aggregator) resolveOrCreate(raw scorecard.RawPerformance, result *ApplyResult) (*models.PlayerIdentity, error) {
	res, found := a.resolver.Resolve(raw.Name, raw.ExternalID, a.club, a.players)
	if found {
		if res.Player.Club != a.club {
			return nil, fmt.Errorf("%w: %q resolved to %s of %s",
				ErrClubMismatch, raw.Name, res.Player.Name, res.Player.Club)
		}
		result.Ambiguous = res.Ambiguous
		// remember the source id so the next season's scrape resolves directly
		if raw.ExternalID != "" && res.Player.ExternalID == "" {
			res.Player.ExternalID = raw.ExternalID
			if err := a.roster.Save(res.Player); err != nil {
				return nil, fmt.Errorf("failed to record external id for %s: %w", res.Player.Name, err)
			}
		}
		return res.Player, nil
	}

	player := models.NewPlayerIdentity(raw.Name, a.club, raw.ExternalID)
	if err := a.roster.Create(player); err != nil {
		return nil, fmt.Errorf("failed to create player %q: %w", raw.Name, err)
	}
	a.players = append(a.players, *player)
	result.NewPlayer = true
	a.logger.Infof("New player %q registered for %s", raw.Name, a.club)
	return &a.players[len(a.players)-1], nil
}

func (a *Aggregator) recomputeTotals(playerID string) error {
	records, err := a.perfs.ListByPlayer(playerID)
	if err != nil {
		return fmt.Errorf("failed to reload performances for %s: %w", playerID, err)
	}
	a.totals[playerID] = totalsFromRecords(playerID, records)
	return nil
}

// Totals returns a snapshot copy of a player's season totals.
func (a *Aggregator) Totals(playerID string) (SeasonTotals, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.totals[playerID]
	if !ok {
		return SeasonTotals{}, false
	}
	return *t, true
}

// Players returns a snapshot of the club's registry.
func (a *Aggregator) Players() []models.PlayerIdentity {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.PlayerIdentity, len(a.players))
	copy(out, a.players)
	return out
}

// AdjustMultipliers runs a point-in-time handicap pass over the whole cohort.
// It holds the aggregator's lock for the duration, so no ApplyPerformance
// can interleave with the recomputation.
func (a *Aggregator) AdjustMultipliers(mode handicap.Mode, rate float64) ([]handicap.Change, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	scores := make(map[string]float64, len(a.players))
	current := make(map[string]float64, len(a.players))
	for i := range a.players {
		scores[a.players[i].ID] = 0
		if t, ok := a.totals[a.players[i].ID]; ok {
			scores[a.players[i].ID] = t.Points
		}
		current[a.players[i].ID] = a.players[i].Multiplier
	}

	changes := handicap.Adjust(scores, current, mode, rate)

	byID := make(map[string]*models.PlayerIdentity, len(a.players))
	for i := range a.players {
		byID[a.players[i].ID] = &a.players[i]
	}
	for _, ch := range changes {
		player := byID[ch.PlayerID]
		player.Multiplier = ch.New
		if err := a.roster.Save(player); err != nil {
			return nil, fmt.Errorf("failed to persist multiplier for %s: %w", player.Name, err)
		}
	}
	return changes, nil
}

// MergePlayers reassigns every performance record from a duplicate identity
// to the surviving one, retires the duplicate and rebuilds the survivor's
// totals. It is an explicit operator action, never triggered by resolution.
// Merging fails if the two identities belong to different clubs.
func (a *Aggregator) MergePlayers(duplicateID, survivorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if duplicateID == survivorID {
		return fmt.Errorf("cannot merge a player into itself")
	}

	var duplicate, survivor *models.PlayerIdentity
	dupIdx := -1
	for i := range a.players {
		switch a.players[i].ID {
		case duplicateID:
			duplicate = &a.players[i]
			dupIdx = i
		case survivorID:
			survivor = &a.players[i]
		}
	}
	if duplicate == nil || survivor == nil {
		return fmt.Errorf("merge requires both identities in the %s roster", a.club)
	}
	if duplicate.Club != survivor.Club {
		return fmt.Errorf("cannot merge players across clubs (%s, %s)", duplicate.Club, survivor.Club)
	}

	if err := a.perfs.ReassignPlayer(duplicateID, survivorID); err != nil {
		return fmt.Errorf("failed to reassign performances from %s to %s: %w", duplicate.Name, survivor.Name, err)
	}

	// carry the duplicate's external id if the survivor lacks one
	if survivor.ExternalID == "" && duplicate.ExternalID != "" {
		survivor.ExternalID = duplicate.ExternalID
	}
	if survivor.IsLegacy && !duplicate.IsLegacy {
		survivor.IsLegacy = false
	}
	if err := a.roster.Save(survivor); err != nil {
		return fmt.Errorf("failed to update survivor %s: %w", survivor.Name, err)
	}
	if err := a.roster.Delete(duplicate); err != nil {
		return fmt.Errorf("failed to retire duplicate %s: %w", duplicate.Name, err)
	}

	a.players = append(a.players[:dupIdx], a.players[dupIdx+1:]...)
	delete(a.totals, duplicateID)
	for key := range a.applied {
		if matchID, playerID, ok := splitAppliedKey(key); ok && playerID == duplicateID {
			delete(a.applied, key)
			a.applied[appliedKey(matchID, survivorID)] = struct{}{}
		}
	}

	if err := a.recomputeTotals(survivorID); err != nil {
		return err
	}

	a.logger.Infof("Merged player %s into %s for %s", duplicateID, survivorID, a.club)
	return nil
}

func appliedKey(matchID, playerID string) string {
	return matchID + "|" + playerID
}

func splitAppliedKey(key string) (matchID, playerID string, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
