package roster

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholloway/cricket-fantasy/internal/models"
)

func newTestResolver() *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(logger)
}

func identity(id, name, club, externalID string, created time.Time) models.PlayerIdentity {
	return models.PlayerIdentity{ID: id, Name: name, Club: club, ExternalID: externalID, CreatedAt: created}
}

func TestResolveByExternalID(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	registry := []models.PlayerIdentity{
		identity("p1", "Thomas Riley", "Northfield CC", "mc-81", base),
		identity("p2", "Completely Different", "Northfield CC", "mc-99", base),
	}

	res, ok := newTestResolver().Resolve("T Riley", "mc-99", "Northfield CC", registry)
	require.True(t, ok)
	assert.Equal(t, "p2", res.Player.ID)
	assert.Equal(t, MethodExternalID, res.Method)
}

func TestResolveExactNormalizedName(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	registry := []models.PlayerIdentity{
		identity("p1", "Thomas  Riley", "Northfield CC", "", base),
		identity("p2", "Thomas Riley", "Ashwell Park", "", base),
	}

	r := newTestResolver()

	res, ok := r.Resolve("  thomas RILEY ", "", "Northfield CC", registry)
	require.True(t, ok)
	assert.Equal(t, "p1", res.Player.ID)
	assert.Equal(t, MethodExact, res.Method)

	// same name in a different club is not this club's player
	res, ok = r.Resolve("Thomas Riley", "", "Ashwell Park", registry)
	require.True(t, ok)
	assert.Equal(t, "p2", res.Player.ID)
}

func TestResolveFuzzyTokenOverlap(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	registry := []models.PlayerIdentity{
		identity("p1", "Thomas James Riley", "Northfield CC", "", base),
		identity("p2", "Marcus Dunn", "Northfield CC", "", base),
	}

	r := newTestResolver()

	// dropped middle name still shares two tokens
	res, ok := r.Resolve("Thomas Riley", "", "Northfield CC", registry)
	require.True(t, ok)
	assert.Equal(t, "p1", res.Player.ID)
	assert.Equal(t, MethodFuzzy, res.Method)
	assert.False(t, res.Ambiguous)

	// a lone shared surname is not enough
	_, ok = r.Resolve("Steven Riley", "", "Northfield CC", registry)
	assert.False(t, ok)

	// zero shared tokens never matches
	_, ok = r.Resolve("Someone Else", "", "Northfield CC", registry)
	assert.False(t, ok)
}

func TestResolveAmbiguityIsDeterministic(t *testing.T) {
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	older := identity("p9", "Thomas James Riley", "Northfield CC", "", base)
	newer := identity("p2", "Thomas Riley James", "Northfield CC", "", base.Add(time.Hour))

	r := newTestResolver()

	// candidate order in the registry must not change the outcome
	for _, registry := range [][]models.PlayerIdentity{
		{older, newer},
		{newer, older},
	} {
		res, ok := r.Resolve("Thomas James", "", "Northfield CC", registry)
		require.True(t, ok)
		assert.Equal(t, "p9", res.Player.ID, "earliest created candidate wins")
		assert.True(t, res.Ambiguous)
		assert.Len(t, res.Candidates, 2)
	}
}

func TestSharedTokens(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Thomas Riley", "Thomas James Riley", 2},
		{"thomas RILEY", "Thomas Riley", 2},
		{"T Riley", "Thomas Riley", 1},
		{"Steven Smith", "David Jones", 0},
		{"", "Thomas Riley", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SharedTokens(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "thomas riley", NormalizeName("  Thomas   RILEY "))
	assert.Equal(t, "", NormalizeName("   "))
}
