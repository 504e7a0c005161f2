package scorecard

import (
	"regexp"
	"strings"
)

// dismissal is the parsed form of a "how out" string from a batting card.
type dismissal struct {
	Out     bool
	Catcher string // fielder credited with a catch
	Stumper string // keeper credited with a stumping
	RunOut  string // fielder credited with a run out
}

var (
	caughtAndBowledRe = regexp.MustCompile(`(?i)^c\s*(?:&|and)\s*b\.?\s+(.+)$`)
	caughtRe          = regexp.MustCompile(`(?i)^(?:c|ct|caught)\.?\s+(.+?)(?:\s+b\.?\s+.+)?$`)
	stumpedRe         = regexp.MustCompile(`(?i)^st\.?\s+(.+?)(?:\s+b\.?\s+.+)?$`)
	runOutRe          = regexp.MustCompile(`(?i)^run\s*out\s*\(?\s*([^)]*)\)?$`)
)

// parseDismissal interprets a batting-card dismissal string. The common club
// scorecard forms are "not out", "b Jones", "lbw b Jones", "c Smith b Jones",
// "c & b Jones", "st Brown b Jones" and "run out (Smith)". Anything
// unrecognized but non-empty counts as a dismissal with no fielding credit.
func parseDismissal(s string) dismissal {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case s == "", lower == "not out", lower == "no", lower == "dnb",
		lower == "did not bat", lower == "retired not out",
		strings.HasPrefix(lower, "retired hurt"):
		return dismissal{}
	}

	if m := caughtAndBowledRe.FindStringSubmatch(s); m != nil {
		return dismissal{Out: true, Catcher: cleanName(m[1])}
	}
	if m := stumpedRe.FindStringSubmatch(s); m != nil {
		return dismissal{Out: true, Stumper: cleanName(m[1])}
	}
	if m := runOutRe.FindStringSubmatch(s); m != nil {
		return dismissal{Out: true, RunOut: cleanName(m[1])}
	}
	if m := caughtRe.FindStringSubmatch(s); m != nil {
		return dismissal{Out: true, Catcher: cleanName(m[1])}
	}

	// bowled, lbw, hit wicket, handled ball and friends: out, no fielder
	return dismissal{Out: true}
}
