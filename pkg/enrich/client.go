// Package enrich provides a client for the solid-waste enrichment API.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/greenatlas/wastemap/internal/model"
)

// ErrBackend marks failures reported by the backend itself (non-2xx with an
// error envelope). Transport failures are wrapped separately.
var ErrBackend = eris.New("enrich: backend error")

// UserLocation is the optional device position attached to a request.
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Request is the enrichment query. UserLocation is null when no device fix
// was acquired; the backend then falls back to the sector/state centroid.
type Request struct {
	State                string        `json:"state"`
	Country              string        `json:"country,omitempty"`
	CollectionEfficiency int           `json:"collection_efficiency"`
	Mileage              float64       `json:"mileage"`
	PetrolLeft           int           `json:"petrol_left"`
	UserLocation         *UserLocation `json:"userLocation"`
}

// errorEnvelope is the backend's failure payload.
type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Client defines the enrichment API operations.
type Client interface {
	// FetchWasteData posts a query and returns the enrichment report.
	FetchWasteData(ctx context.Context, req Request) (*model.WasteReport, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithCacheTTL sets how long successful responses are reused. Zero disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *httpClient) { c.cacheTTL = ttl }
}

// WithRateLimit caps outbound request frequency.
func WithRateLimit(interval time.Duration) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}

type httpClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	cache    *gocache.Cache
	cacheTTL time.Duration
}

// NewClient creates an enrichment client. Responses are cached in memory for
// the configured TTL; nothing touches disk.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = gocache.New(c.cacheTTL, 10*time.Minute)
	return c
}

// FetchWasteData implements Client.
func (c *httpClient) FetchWasteData(ctx context.Context, req Request) (*model.WasteReport, error) {
	key := cacheKey(req)
	if c.cacheTTL > 0 {
		if cached, ok := c.cache.Get(key); ok {
			return cached.(*model.WasteReport), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "enrich: rate limit")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/solid-waste-data", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "enrich: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != "" {
			return nil, eris.Wrapf(ErrBackend, "status %d: %s", resp.StatusCode, envelope.Error)
		}
		return nil, eris.Wrapf(ErrBackend, "status %d", resp.StatusCode)
	}

	var report model.WasteReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, eris.Wrap(err, "enrich: parse response")
	}

	if c.cacheTTL > 0 {
		c.cache.Set(key, &report, c.cacheTTL)
	}
	return &report, nil
}

// cacheKey identifies a request for response reuse. Location is part of the
// key: a submission with a device fix can yield different route rankings.
func cacheKey(req Request) string {
	loc := "none"
	if req.UserLocation != nil {
		loc = fmt.Sprintf("%.4f,%.4f", req.UserLocation.Latitude, req.UserLocation.Longitude)
	}
	return fmt.Sprintf("%s|%s|%d|%g|%d|%s", req.State, req.Country, req.CollectionEfficiency, req.Mileage, req.PetrolLeft, loc)
}
