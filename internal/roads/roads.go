// Package roads corrects simulated positions onto the road network.
package roads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"delivery_tracker/internal/models"
)

const snapToRoadsURL = "https://roads.googleapis.com/v1/snapToRoads"

var (
	// ErrSnapperDisabled is returned when no API key is configured.
	ErrSnapperDisabled = errors.New("roads: snapper disabled")
	// ErrNoSnappedPoint is returned when the service found no nearby road.
	ErrNoSnappedPoint = errors.New("roads: no snapped point")
)

// Snapper returns the road position nearest to c.
type Snapper interface {
	Snap(ctx context.Context, c models.Coordinate) (models.Coordinate, error)
}

// GoogleRoads is a Snapper backed by the Google Roads API.
type GoogleRoads struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleRoadsOption customises a GoogleRoads client.
type GoogleRoadsOption func(*GoogleRoads)

// WithRoadsEndpoint overrides the snapToRoads URL.
func WithRoadsEndpoint(u string) GoogleRoadsOption {
	return func(g *GoogleRoads) { g.endpoint = u }
}

// WithRateLimit caps outgoing requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) GoogleRoadsOption {
	return func(g *GoogleRoads) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// NewGoogleRoads creates a client; an empty apiKey disables snapping.
func NewGoogleRoads(apiKey string, opts ...GoogleRoadsOption) *GoogleRoads {
	g := &GoogleRoads{
		apiKey:     apiKey,
		endpoint:   snapToRoadsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type snapToRoadsResponse struct {
	SnappedPoints []struct {
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"snappedPoints"`
}

// Snap queries snapToRoads for a single point.
func (g *GoogleRoads) Snap(ctx context.Context, c models.Coordinate) (models.Coordinate, error) {
	if g.apiKey == "" {
		return c, ErrSnapperDisabled
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return c, fmt.Errorf("roads.Snap rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("path", fmt.Sprintf("%f,%f", c.Lat, c.Lng))
	q.Set("interpolate", "true")
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return c, fmt.Errorf("roads.Snap build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return c, fmt.Errorf("roads.Snap call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c, fmt.Errorf("roads.Snap read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return c, fmt.Errorf("roads.Snap: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out snapToRoadsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return c, fmt.Errorf("roads.Snap unmarshal: %w", err)
	}
	if len(out.SnappedPoints) == 0 {
		return c, ErrNoSnappedPoint
	}

	loc := out.SnappedPoints[0].Location
	return models.Coordinate{Lat: loc.Latitude, Lng: loc.Longitude}, nil
}
