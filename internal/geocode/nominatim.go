// Package geocode resolves postal addresses to coordinates through
// Nominatim. Lookups are rate limited to stay inside the public usage
// policy and cached because intake frequently re-sees the same villages.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Client is a rate-limited, caching Nominatim search client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *gocache.Cache
}

// New creates a Client. ratePerS should normally be 1 for the public
// Nominatim instance.
func New(baseURL, userAgent string, timeout time.Duration, ratePerS float64, cacheTTL time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if ratePerS <= 0 {
		ratePerS = 1
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerS), 1),
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup geocodes one address string. It returns "lat, lon" on success and
// "" when Nominatim has no result; the error is non-nil only for transport
// or decoding failures.
func (c *Client) Lookup(ctx context.Context, address string) (string, error) {
	if address == "" {
		return "", nil
	}
	if cached, ok := c.cache.Get(address); ok {
		return cached.(string), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		c.cache.Set(address, "", gocache.DefaultExpiration)
		return "", nil
	}

	coords := fmt.Sprintf("%s, %s", results[0].Lat, results[0].Lon)
	c.cache.Set(address, coords, gocache.DefaultExpiration)
	return coords, nil
}
