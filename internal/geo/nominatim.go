package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGeocoderTimeout = 5 * time.Second
	maxGeocoderBody        = 1 << 20
)

// NominatimConfig configures the reverse-geocoding client.
type NominatimConfig struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	RateLimitRPS float64
}

// NominatimClient queries a Nominatim compatible /reverse endpoint. The
// underlying http.Client and limiter are shared by concurrent callers.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

type nominatimAddress struct {
	State   string `json:"state"`
	County  string `json:"county"`
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
}

type nominatimResponse struct {
	Address *nominatimAddress `json:"address"`
	Error   string            `json:"error"`
}

// NewNominatimClient builds a client. A non-positive RateLimitRPS disables throttling.
func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGeocoderTimeout
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	return &NominatimClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Reverse resolves coordinates to an administrative location.
func (c *NominatimClient) Reverse(ctx context.Context, coords Coordinates) (Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Location{}, fmt.Errorf("geocoder rate limit: %w", err)
	}

	endpoint, err := url.Parse(c.baseURL + "/reverse")
	if err != nil {
		return Location{}, fmt.Errorf("parse geocoder url: %w", err)
	}
	q := endpoint.Query()
	q.Set("format", "json")
	q.Set("lat", formatDegrees(coords.Lat))
	q.Set("lon", formatDegrees(coords.Lon))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Location{}, fmt.Errorf("geocoder responded with status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGeocoderBody)).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("decode geocoder response: %w", err)
	}
	if payload.Error != "" {
		return Location{}, fmt.Errorf("geocoder: %s", payload.Error)
	}
	if payload.Address == nil {
		return Location{}, nil
	}

	addr := payload.Address
	city := addr.City
	if city == "" {
		city = addr.Town
	}
	if city == "" {
		city = addr.Village
	}
	return Location{State: addr.State, District: addr.County, City: city}, nil
}
