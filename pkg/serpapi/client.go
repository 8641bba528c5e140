// Package serpapi wraps the SerpAPI search endpoints used for lead
// discovery: Google Maps local search and plain Google web search.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://serpapi.com"

// maxResultsPerRequest is the provider's per-request cap.
const maxResultsPerRequest = 20

// Client performs SerpAPI search operations.
type Client interface {
	MapsSearch(ctx context.Context, q MapsQuery) ([]MapsResult, error)
	WebSearch(ctx context.Context, q WebQuery) ([]OrganicResult, error)
}

// MapsQuery is a Google Maps local search request.
type MapsQuery struct {
	Query    string
	Location string
	Limit    int
}

// MapsResult is a single local business listing.
type MapsResult struct {
	Title       string         `json:"title"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone"`
	Rating      float64        `json:"rating"`
	Reviews     int            `json:"reviews"`
	Website     string         `json:"website"`
	Link        string         `json:"link"`
	PlaceID     string         `json:"place_id"`
	Type        string         `json:"type"`
	GPS         GPSCoordinates `json:"gps_coordinates"`
}

// GPSCoordinates holds a listing's position.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WebQuery is a plain Google web search request (LinkedIn X-Ray, Clutch).
type WebQuery struct {
	Query string
	Limit int
}

// OrganicResult is a single organic web search hit.
type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Error          string          `json:"error"`
	LocalResults   []MapsResult    `json:"local_results"`
	OrganicResults []OrganicResult `json:"organic_results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a SerpAPI client. Requests are rate limited to stay
// inside the free-tier quota.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) MapsSearch(ctx context.Context, q MapsQuery) ([]MapsResult, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxResultsPerRequest {
		limit = maxResultsPerRequest
	}

	params := url.Values{}
	params.Set("engine", "google_maps")
	params.Set("q", q.Query+" in "+q.Location)
	params.Set("type", "search")
	params.Set("num", strconv.Itoa(limit))

	resp, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}

	results := resp.LocalResults
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *httpClient) WebSearch(ctx context.Context, q WebQuery) ([]OrganicResult, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxResultsPerRequest {
		limit = maxResultsPerRequest
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q.Query)
	params.Set("num", strconv.Itoa(limit))

	resp, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}

	results := resp.OrganicResults
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *httpClient) search(ctx context.Context, params url.Values) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serpapi: rate limit wait")
	}

	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("serpapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}

	// The provider reports API-level failures inside a 200 body.
	if result.Error != "" {
		return nil, eris.Errorf("serpapi: api error: %s", result.Error)
	}

	return &result, nil
}
