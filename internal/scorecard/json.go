package scorecard

import (
	"encoding/json"
	"strconv"
	"strings"
)

// extractJSON handles the match centre's JSON export. The payload shape has
// drifted over the seasons, so fields are probed under every key variant
// that has been seen in the wild and defaulted to zero when absent.
func (e *Extractor) extractJSON(doc []byte, mctx Context, b *builder, diag *Diagnostics) {
	var payload interface{}
	if err := json.Unmarshal(doc, &payload); err != nil {
		diag.Reason = "unparsable JSON: " + err.Error()
		return
	}

	innings := collectInnings(payload)
	if len(innings) == 0 {
		diag.Reason = "no innings data in JSON scorecard"
		return
	}

	for _, inn := range innings {
		team := pickString(inn, "team", "batting_team", "side", "club")
		batting := pickSlice(inn, "batting", "batsmen", "bat")
		bowling := pickSlice(inn, "bowling", "bowlers", "bowl")

		switch classifySide(team, mctx.Club) {
		case sideUnknown:
			diag.warnf("innings with no team label skipped")
		case sideOurs:
			if len(batting) == 0 {
				diag.warnf("innings for %s has no batting section", mctx.Club)
			}
			for _, entry := range batting {
				e.jsonBattingEntry(entry, b, diag)
			}
		case sideOpposition:
			if len(bowling) == 0 {
				diag.warnf("opposition innings has no bowling section")
			}
			for _, entry := range bowling {
				e.jsonBowlingEntry(entry, b, diag)
			}
			// opposition dismissals name our fielders
			for _, entry := range batting {
				if m, ok := entry.(map[string]interface{}); ok {
					creditFielders(parseDismissal(pickString(m, "how_out", "dismissal", "out")), b)
				}
			}
		}
	}
}

// collectInnings finds the innings list wherever this payload version put it.
// A bare JSON array is treated as the innings list itself.
func collectInnings(payload interface{}) []map[string]interface{} {
	var raw []interface{}
	switch v := payload.(type) {
	case []interface{}:
		raw = v
	case map[string]interface{}:
		raw = pickSlice(v, "innings", "inns", "scorecard")
		if raw == nil {
			if nested, ok := v["match"].(map[string]interface{}); ok {
				raw = pickSlice(nested, "innings", "inns", "scorecard")
			}
		}
	}

	var innings []map[string]interface{}
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			innings = append(innings, m)
		}
	}
	return innings
}

func (e *Extractor) jsonBattingEntry(entry interface{}, b *builder, diag *Diagnostics) {
	m, ok := entry.(map[string]interface{})
	if !ok {
		diag.warnf("malformed batting entry skipped")
		return
	}
	name := cleanName(pickString(m, "name", "player", "batsman", "player_name"))
	if name == "" {
		diag.warnf("batting entry without a player name skipped")
		return
	}

	fig := BattingFigures{
		Runs:       pickInt(m, "runs", "r"),
		BallsFaced: pickInt(m, "balls", "balls_faced", "b"),
		Fours:      pickInt(m, "fours", "4s"),
		Sixes:      pickInt(m, "sixes", "6s"),
	}
	if how := pickString(m, "how_out", "dismissal", "out"); how != "" {
		fig.Dismissed = parseDismissal(how).Out
	} else if out, found := pickBool(m, "dismissed", "is_out"); found {
		fig.Dismissed = out
	}

	b.addBatting(name, fig)
	if id := pickString(m, "player_id", "id", "pid"); id != "" {
		b.setExternalID(name, id)
	}
	if keeper, _ := pickBool(m, "keeper", "wicket_keeper", "is_keeper"); keeper {
		b.markKeeper(name)
	}
}

func (e *Extractor) jsonBowlingEntry(entry interface{}, b *builder, diag *Diagnostics) {
	m, ok := entry.(map[string]interface{})
	if !ok {
		diag.warnf("malformed bowling entry skipped")
		return
	}
	name := cleanName(pickString(m, "name", "player", "bowler", "player_name"))
	if name == "" {
		diag.warnf("bowling entry without a player name skipped")
		return
	}

	fig := BowlingFigures{
		Overs:        pickFloat(m, "overs", "o"),
		Maidens:      pickInt(m, "maidens", "mdns", "m"),
		RunsConceded: pickInt(m, "runs_conceded", "runs", "r"),
		Wickets:      pickInt(m, "wickets", "wkts", "w"),
	}
	b.addBowling(name, fig)
	if id := pickString(m, "player_id", "id", "pid"); id != "" {
		b.setExternalID(name, id)
	}
}

// pickString returns the first present key as a string, tolerating numeric
// ids that arrive as JSON numbers.
func pickString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func pickFloat(m map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(sanitizeNumber(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func pickInt(m map[string]interface{}, keys ...string) int {
	return int(pickFloat(m, keys...))
}

func pickBool(m map[string]interface{}, keys ...string) (value, found bool) {
	for _, k := range keys {
		if v, ok := m[k].(bool); ok {
			return v, true
		}
	}
	return false, false
}

func pickSlice(m map[string]interface{}, keys ...string) []interface{} {
	for _, k := range keys {
		if v, ok := m[k].([]interface{}); ok {
			return v
		}
	}
	return nil
}
