package roster

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mholloway/cricket-fantasy/internal/models"
)

// Resolution methods, in the order they are attempted.
const (
	MethodExternalID = "external_id"
	MethodExact      = "exact"
	MethodFuzzy      = "fuzzy"
)

// Resolution describes how a scorecard name was matched to a known identity.
type Resolution struct {
	Player     *models.PlayerIdentity
	Method     string
	Ambiguous  bool
	Candidates []string // competing names when the fuzzy match was ambiguous
}

// Resolver reconciles inconsistent scorecard names against a known-player
// registry. Legacy rosters may lack external ids and scraped performances may
// lack full names; this is the seam that tolerates both.
type Resolver struct {
	logger *logrus.Logger
}

// NewResolver creates a new identity resolver.
func NewResolver(logger *logrus.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve matches a name (and optional source player id) against the
// registry. Order: external id, exact normalized name within the club, then
// fuzzy token overlap within the club. Returns false when the player is not
// known; the caller decides whether that means a new identity.
func (r *Resolver) Resolve(name, externalID, club string, registry []models.PlayerIdentity) (Resolution, bool) {
	if externalID != "" {
		for i := range registry {
			if registry[i].ExternalID != "" && registry[i].ExternalID == externalID {
				return Resolution{Player: &registry[i], Method: MethodExternalID}, true
			}
		}
	}

	normalized := NormalizeName(name)
	for i := range registry {
		if registry[i].Club == club && NormalizeName(registry[i].Name) == normalized {
			return Resolution{Player: &registry[i], Method: MethodExact}, true
		}
	}

	var fuzzy []*models.PlayerIdentity
	for i := range registry {
		if registry[i].Club == club && SharedTokens(name, registry[i].Name) >= 2 {
			fuzzy = append(fuzzy, &registry[i])
		}
	}
	if len(fuzzy) == 0 {
		return Resolution{}, false
	}

	// deterministic pick: earliest created wins, id breaks exact ties, so
	// replays of the same batch resolve identically every time
	sort.Slice(fuzzy, func(a, b int) bool {
		if !fuzzy[a].CreatedAt.Equal(fuzzy[b].CreatedAt) {
			return fuzzy[a].CreatedAt.Before(fuzzy[b].CreatedAt)
		}
		return fuzzy[a].ID < fuzzy[b].ID
	})

	res := Resolution{Player: fuzzy[0], Method: MethodFuzzy}
	if len(fuzzy) > 1 {
		res.Ambiguous = true
		for _, c := range fuzzy {
			res.Candidates = append(res.Candidates, c.Name)
		}
		r.logger.Warnf("Ambiguous fuzzy match for %q (%s): candidates %v, resolved to %q",
			name, club, res.Candidates, fuzzy[0].Name)
	}
	return res, true
}

// NormalizeName lowercases and collapses internal whitespace so spelling-
// insensitive comparisons see the same key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Tokens splits a name into its normalized whitespace-separated parts.
func Tokens(name string) []string {
	return strings.Fields(NormalizeName(name))
}

// SharedTokens counts the distinct name parts two names have in common.
// Two shared tokens is the fuzzy-match bar: it tolerates an abbreviated
// first name or a dropped middle name, but a lone common surname with
// nothing else shared never matches.
func SharedTokens(a, b string) int {
	set := make(map[string]struct{})
	for _, tok := range Tokens(a) {
		set[tok] = struct{}{}
	}
	shared := 0
	for _, tok := range Tokens(b) {
		if _, ok := set[tok]; ok {
			shared++
			delete(set, tok)
		}
	}
	return shared
}
