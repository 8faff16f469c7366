package location

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/greenatlas/wastemap/internal/model"
)

const defaultIPBaseURL = "http://ip-api.com/json"

// IPProvider resolves an approximate position from the host's public IP.
// Coarse, but good enough for the sector-level fallback.
type IPProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// IPOption configures an IPProvider.
type IPOption func(*IPProvider)

// WithIPBaseURL sets a custom endpoint (for testing).
func WithIPBaseURL(url string) IPOption {
	return func(p *IPProvider) { p.baseURL = url }
}

// WithIPHTTPClient sets a custom HTTP client.
func WithIPHTTPClient(hc *http.Client) IPOption {
	return func(p *IPProvider) { p.httpClient = hc }
}

// NewIPProvider creates an IP-geolocation provider. The free endpoint allows
// 45 requests per minute; the limiter stays well under that.
func NewIPProvider(opts ...IPOption) *IPProvider {
	p := &IPProvider{
		baseURL:    defaultIPBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *IPProvider) Name() string { return "ip" }

// Available implements Provider.
func (p *IPProvider) Available() bool { return true }

type ipResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locate implements Provider.
func (p *IPProvider) Locate(ctx context.Context) (model.Coordinate, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: rate limit: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: build request: %v", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: request: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return model.Coordinate{}, eris.Wrapf(ErrPermissionDenied, "ip: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: read body: %v", err)
	}

	var parsed ipResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "ip: parse response: %v", err)
	}
	if parsed.Status != "success" {
		return model.Coordinate{}, eris.Wrapf(ErrPermissionDenied, "ip: %s", parsed.Message)
	}

	return model.Coordinate{Lat: parsed.Lat, Lon: parsed.Lon}, nil
}
