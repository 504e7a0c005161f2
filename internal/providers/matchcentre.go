// Package providers contains clients for the external match centre that
// publishes fixtures and scorecards.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// CacheProvider is the slice of the cache layer the client needs.
type CacheProvider interface {
	GetSimple(key string, dest interface{}) error
	SetSimple(key string, value interface{}, expiration time.Duration) error
}

// Fixture is one entry from the match centre's fixture feed.
type Fixture struct {
	Ref         string    `json:"ref"`
	Club        string    `json:"club"`
	Opponent    string    `json:"opponent"`
	Competition string    `json:"competition"`
	Date        time.Time `json:"date"`
}

const (
	scorecardCacheTTL = 24 * time.Hour
	fixturesCacheTTL  = 30 * time.Minute
	maxAttempts       = 3
)

// MatchCentreClient fetches fixtures and scorecard documents. Completed
// scorecards never change, so they cache aggressively; the breaker keeps a
// flaky upstream from stalling a whole batch run.
type MatchCentreClient struct {
	baseURL    string
	httpClient *http.Client
	cache      CacheProvider
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewMatchCentreClient creates a client limited to rps requests per second.
func NewMatchCentreClient(baseURL string, rps float64, timeout time.Duration, cache CacheProvider, logger *logrus.Logger) *MatchCentreClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "matchcentre",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &MatchCentreClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchScorecard returns the raw scorecard document (HTML or JSON) for a
// match ref.
func (c *MatchCentreClient) FetchScorecard(ctx context.Context, matchRef string) ([]byte, error) {
	cacheKey := fmt.Sprintf("matchcentre:scorecard:%s", matchRef)

	var cached []byte
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	doc, err := c.fetch(ctx, fmt.Sprintf("%s/matches/%s/scorecard", c.baseURL, url.PathEscape(matchRef)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scorecard for %s: %w", matchRef, err)
	}

	if c.cache != nil && len(doc) > 0 {
		if err := c.cache.SetSimple(cacheKey, doc, scorecardCacheTTL); err != nil {
			c.logger.Warnf("Failed to cache scorecard %s: %v", matchRef, err)
		}
	}

	return doc, nil
}

// ListFixtures returns a club's fixtures for a season.
func (c *MatchCentreClient) ListFixtures(ctx context.Context, club string, season int) ([]Fixture, error) {
	cacheKey := fmt.Sprintf("matchcentre:fixtures:%s:%d", club, season)

	var cached []Fixture
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	u := fmt.Sprintf("%s/clubs/%s/fixtures?season=%d", c.baseURL, url.PathEscape(club), season)
	body, err := c.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for %s: %w", club, err)
	}

	var fixtures []Fixture
	if err := json.Unmarshal(body, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to decode fixture feed for %s: %w", club, err)
	}

	if c.cache != nil && len(fixtures) > 0 {
		if err := c.cache.SetSimple(cacheKey, fixtures, fixturesCacheTTL); err != nil {
			c.logger.Warnf("Failed to cache fixtures for %s: %v", club, err)
		}
	}

	return fixtures, nil
}

// fetch performs a rate-limited GET through the circuit breaker with
// exponential backoff.
func (c *MatchCentreClient) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Warnf("Request failed (attempt %d), waiting %v: %v", attempt, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doGet(ctx, url)
		})
		if err == nil {
			return body.([]byte), nil
		}
		lastErr = err

		// an open breaker will not recover within this batch's retries
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("match centre unavailable: %w", err)
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *MatchCentreClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
