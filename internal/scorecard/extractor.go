package scorecard

import (
	"bytes"
	"strings"

	"github.com/sirupsen/logrus"
)

// Extractor turns raw match-centre scorecard documents into normalized
// per-player performance tuples. It knows nothing about identity resolution
// or scoring; names come back exactly as the source spelled them.
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor creates a new scorecard extractor.
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses a scorecard document (HTML or JSON) and returns one
// RawPerformance per player of the context club. A document that cannot be
// parsed at all yields an empty slice and a diagnostic reason; a document
// with missing or broken sections yields whatever could be parsed plus
// warnings. Extract never returns an error: a bad scorecard must not abort
// the batch.
func (e *Extractor) Extract(doc []byte, mctx Context) ([]RawPerformance, Diagnostics) {
	var diag Diagnostics

	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		diag.Reason = "empty scorecard document"
		return nil, diag
	}

	b := newBuilder()
	switch trimmed[0] {
	case '{', '[':
		e.extractJSON(trimmed, mctx, b, &diag)
	default:
		e.extractHTML(trimmed, mctx, b, &diag)
	}

	perfs := b.performances()
	if len(perfs) == 0 && diag.Reason == "" {
		diag.Reason = "no player performances found in scorecard"
	}

	if diag.Reason != "" {
		e.logger.Warnf("Scorecard %s: extraction failed: %s", mctx.MatchRef, diag.Reason)
		return nil, diag
	}
	for _, w := range diag.Warnings {
		e.logger.Warnf("Scorecard %s: %s", mctx.MatchRef, w)
	}

	e.logger.Infof("Scorecard %s: extracted %d performances for %s", mctx.MatchRef, len(perfs), mctx.Club)
	return perfs, diag
}

// builder accumulates figures per player name. Rows for the same player are
// merged by summation, so a player duplicated within one innings still comes
// out as a single tuple.
type builder struct {
	order []string
	perfs map[string]*RawPerformance
}

func newBuilder() *builder {
	return &builder{perfs: make(map[string]*RawPerformance)}
}

func (b *builder) get(name string) *RawPerformance {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if p, ok := b.perfs[key]; ok {
		return p
	}
	p := &RawPerformance{Name: strings.Join(strings.Fields(name), " ")}
	b.perfs[key] = p
	b.order = append(b.order, key)
	return p
}

func (b *builder) addBatting(name string, fig BattingFigures) {
	p := b.get(name)
	p.Batting.Runs += fig.Runs
	p.Batting.BallsFaced += fig.BallsFaced
	p.Batting.Fours += fig.Fours
	p.Batting.Sixes += fig.Sixes
	if fig.Dismissed {
		p.Batting.Dismissed = true
	}
}

func (b *builder) addBowling(name string, fig BowlingFigures) {
	p := b.get(name)
	p.Bowling.Overs = addOvers(p.Bowling.Overs, fig.Overs)
	p.Bowling.RunsConceded += fig.RunsConceded
	p.Bowling.Wickets += fig.Wickets
	p.Bowling.Maidens += fig.Maidens
}

func (b *builder) addCatch(name string) { b.get(name).Fielding.Catches++ }

func (b *builder) addRunOut(name string) { b.get(name).Fielding.RunOuts++ }

func (b *builder) addStumping(name string) {
	p := b.get(name)
	p.Fielding.Stumpings++
	p.Keeper = true
}

func (b *builder) markKeeper(name string) { b.get(name).Keeper = true }

func (b *builder) setExternalID(name, id string) {
	p := b.get(name)
	if p.ExternalID == "" {
		p.ExternalID = id
	}
}

// performances returns the accumulated tuples in first-seen order.
func (b *builder) performances() []RawPerformance {
	out := make([]RawPerformance, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, *b.perfs[key])
	}
	return out
}

// addOvers sums two overs values in cricket notation (7.3 + 2.4 = 10.1).
func addOvers(a, b float64) float64 {
	balls := BallsFromOvers(a) + BallsFromOvers(b)
	return float64(balls/6) + float64(balls%6)/10
}

// cleanName strips captain/keeper markers and collapses whitespace.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "†", "")
	name = strings.ReplaceAll(name, "(c)", "")
	name = strings.ReplaceAll(name, "(wk)", "")
	return strings.Join(strings.Fields(name), " ")
}

// side says which team an innings or table belongs to.
type side int

const (
	sideUnknown side = iota
	sideOurs
	sideOpposition
)

// classifySide decides whether a team label from the scorecard refers to the
// context club. Match-centre side labels are inconsistent ("Northfield CC",
// "NORTHFIELD", "Northfield CC 2nd XI"), so containment either way counts.
// A missing label is unknown: guessing would misfile the whole innings, so
// callers skip the section with a warning instead.
func classifySide(team, club string) side {
	t := strings.ToLower(strings.Join(strings.Fields(team), " "))
	if t == "" {
		return sideUnknown
	}
	c := strings.ToLower(strings.Join(strings.Fields(club), " "))
	if c == "" || strings.Contains(t, c) || strings.Contains(c, t) {
		return sideOurs
	}
	return sideOpposition
}
