package riot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// ACS serves tournament realm matches without an API key
	acsBaseURL = "https://acs.leagueoflegends.com"

	// Rate limits for dev key (using conservative values to be safe)
	requestsPerSecond = 15 // Actual: 20
	requestsPer2Min   = 90 // Actual: 100

	maxRetries        = 3
	defaultRetryAfter = 10 * time.Second
	soloQueue         = 420
)

// Client is a rate-limited client for the regional match-v5 API and the
// tournament ACS endpoints
type Client struct {
	apiKey          string
	httpClient      *http.Client
	regionalBaseURL string
	acsBaseURL      string
	retryAfter      time.Duration

	// Rate limiting
	mu          sync.Mutex
	perSecond   int
	per2Min     int
	shortWindow []time.Time // Requests in last second
	longWindow  []time.Time // Requests in last 2 minutes
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRegionalBaseURL replaces https://{routing}.api.riotgames.com (useful for testing)
func WithRegionalBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.regionalBaseURL = strings.TrimRight(u, "/")
	}
}

// WithACSBaseURL replaces the ACS host (useful for testing)
func WithACSBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.acsBaseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimits overrides the per-second and per-2-minute request budgets
func WithRateLimits(perSecond, per2Min int) ClientOption {
	return func(c *Client) {
		c.perSecond = perSecond
		c.per2Min = per2Min
	}
}

// WithRetryAfter sets the wait used when a 429 carries no Retry-After header
func WithRetryAfter(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryAfter = d
	}
}

// NewClient creates a new Riot API client
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("riot API key not set (api_key or RIOT_API_KEY)")
	}

	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		acsBaseURL:  acsBaseURL,
		retryAfter:  defaultRetryAfter,
		perSecond:   requestsPerSecond,
		per2Min:     requestsPer2Min,
		shortWindow: make([]time.Time, 0),
		longWindow:  make([]time.Time, 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Show key prefix for debugging (don't show full key)
	if len(apiKey) > 12 {
		fmt.Printf("Using API key: %s...%s\n", apiKey[:8], apiKey[len(apiKey)-4:])
	}
	return c, nil
}

// waitForRateLimit blocks until another request fits both windows
func (c *Client) waitForRateLimit(ctx context.Context) error {
	for {
		c.mu.Lock()
		now := time.Now()

		c.shortWindow = prune(c.shortWindow, now.Add(-time.Second))
		c.longWindow = prune(c.longWindow, now.Add(-2*time.Minute))

		var wait time.Duration
		switch {
		case c.perSecond > 0 && len(c.shortWindow) >= c.perSecond:
			wait = c.shortWindow[0].Add(time.Second).Sub(now) + 100*time.Millisecond
		case c.per2Min > 0 && len(c.longWindow) >= c.per2Min:
			wait = c.longWindow[0].Add(2*time.Minute).Sub(now) + 100*time.Millisecond
			fmt.Printf("      [Rate limit] %d req/2min, waiting %.1fs...\n", len(c.longWindow), wait.Seconds())
		default:
			c.shortWindow = append(c.shortWindow, now)
			c.longWindow = append(c.longWindow, now)
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func prune(window []time.Time, cutoff time.Time) []time.Time {
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doRequest makes a rate-limited GET and decodes the JSON body into result.
// Only regional requests carry the API key.
func (c *Client) doRequest(ctx context.Context, rawURL string, authorized bool, result any) error {
	for attempt := 0; ; attempt++ {
		if err := c.waitForRateLimit(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		if authorized {
			req.Header.Set("X-Riot-Token", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			resp.Body.Close()
			wait := c.retryAfter
			if s := resp.Header.Get("Retry-After"); s != "" {
				if secs, err := strconv.Atoi(s); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			fmt.Printf("      [429 Rate Limited] Waiting %.0f seconds...\n", wait.Seconds())
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return &StatusError{StatusCode: resp.StatusCode, URL: redact(rawURL)}
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", redact(rawURL), err)
		}
		return nil
	}
}

// redact drops the query string so access hashes stay out of logs
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func (c *Client) regionalURL(platform string) (string, error) {
	if c.regionalBaseURL != "" {
		return c.regionalBaseURL, nil
	}
	routing, err := RoutingFor(platform)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.api.riotgames.com", routing), nil
}

func (c *Client) getDocument(ctx context.Context, rawURL string, authorized bool) (map[string]any, error) {
	var doc map[string]any
	if err := c.doRequest(ctx, rawURL, authorized, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("empty payload from %s", redact(rawURL))
	}
	return doc, nil
}

// GetMatch fetches a match-v5 payload by numeric game id on platform
func (c *Client) GetMatch(ctx context.Context, platform string, gameID int64) (map[string]any, error) {
	base, err := c.regionalURL(platform)
	if err != nil {
		return nil, err
	}
	return c.getDocument(ctx, fmt.Sprintf("%s/lol/match/v5/matches/%s", base, MatchID(platform, gameID)), true)
}

// GetTimeline fetches the match-v5 timeline of a game
func (c *Client) GetTimeline(ctx context.Context, platform string, gameID int64) (map[string]any, error) {
	base, err := c.regionalURL(platform)
	if err != nil {
		return nil, err
	}
	return c.getDocument(ctx, fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline", base, MatchID(platform, gameID)), true)
}

// GetTournamentMatch fetches a tournament realm match from ACS
func (c *Client) GetTournamentMatch(ctx context.Context, realm, gameID, hash string) (map[string]any, error) {
	return c.getDocument(ctx, c.acsURL(realm, gameID, "", hash), false)
}

// GetTournamentTimeline fetches a tournament realm timeline from ACS
func (c *Client) GetTournamentTimeline(ctx context.Context, realm, gameID, hash string) (map[string]any, error) {
	return c.getDocument(ctx, c.acsURL(realm, gameID, "/timeline", hash), false)
}

func (c *Client) acsURL(realm, gameID, suffix, hash string) string {
	u := fmt.Sprintf("%s/v1/stats/game/%s/%s%s", c.acsBaseURL, url.PathEscape(realm), url.PathEscape(gameID), suffix)
	if hash != "" {
		u += "?gameHash=" + url.QueryEscape(hash)
	}
	return u
}

// GetMatchIDsByPUUID lists the most recent ranked Solo Queue match ids of an account
func (c *Client) GetMatchIDsByPUUID(ctx context.Context, platform, puuid string, count int) ([]string, error) {
	base, err := c.regionalURL(platform)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?queue=%d&count=%d",
		base, url.PathEscape(puuid), soloQueue, count)

	var matchIDs []string
	err = c.doRequest(ctx, u, true, &matchIDs)
	return matchIDs, err
}
