package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"delivery_tracker/internal/models"
)

const (
	computeRoutesURL = "https://routes.googleapis.com/directions/v2:computeRoutes"
	routesFieldMask  = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline"
)

// GoogleRoutes calls the Google Routes API (v2 computeRoutes).
type GoogleRoutes struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// GoogleRoutesOption customises a GoogleRoutes client.
type GoogleRoutesOption func(*GoogleRoutes)

// WithRoutesEndpoint overrides the computeRoutes URL.
func WithRoutesEndpoint(url string) GoogleRoutesOption {
	return func(g *GoogleRoutes) { g.endpoint = url }
}

// WithRoutesHTTPClient overrides the HTTP client.
func WithRoutesHTTPClient(c *http.Client) GoogleRoutesOption {
	return func(g *GoogleRoutes) { g.httpClient = c }
}

// NewGoogleRoutes creates a client. An empty apiKey yields a client that
// always returns ErrProviderDisabled.
func NewGoogleRoutes(apiKey string, opts ...GoogleRoutesOption) *GoogleRoutes {
	g := &GoogleRoutes{
		apiKey:     apiKey,
		endpoint:   computeRoutesURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type computeRoutesRequest struct {
	Origin            routesWaypoint `json:"origin"`
	Destination       routesWaypoint `json:"destination"`
	TravelMode        string         `json:"travelMode"`
	RoutingPreference string         `json:"routingPreference"`
	PolylineQuality   string         `json:"polylineQuality"`
}

type routesWaypoint struct {
	Address string `json:"address"`
}

// computeRoutesResponse holds the fields selected by routesFieldMask.
type computeRoutesResponse struct {
	Routes []struct {
		DistanceMeters int    `json:"distanceMeters"`
		Duration       string `json:"duration"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// Route computes a driving route between two addresses.
func (g *GoogleRoutes) Route(ctx context.Context, origin, destination string) (Path, error) {
	if g.apiKey == "" {
		return Path{}, ErrProviderDisabled
	}

	payload, err := json.Marshal(computeRoutesRequest{
		Origin:            routesWaypoint{Address: origin},
		Destination:       routesWaypoint{Address: destination},
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
		PolylineQuality:   "HIGH_QUALITY",
	})
	if err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Path{}, fmt.Errorf("routing.GoogleRoutes: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out computeRoutesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes unmarshal: %w", err)
	}
	if len(out.Routes) == 0 {
		return Path{}, fmt.Errorf("routing.GoogleRoutes: no route returned")
	}

	r := out.Routes[0]
	coords, err := decodePolyline(r.Polyline.EncodedPolyline)
	if err != nil {
		return Path{}, fmt.Errorf("routing.GoogleRoutes decode polyline: %w", err)
	}

	return Path{
		Coordinates:     coords,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: parseDurationSeconds(r.Duration),
	}, nil
}

func decodePolyline(encoded string) ([]models.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	coords := make([]models.Coordinate, 0, len(raw))
	for _, c := range raw {
		coords = append(coords, models.Coordinate{Lat: c[0], Lng: c[1]})
	}
	return coords, nil
}

// parseDurationSeconds reads protobuf-style durations such as "1234s".
func parseDurationSeconds(s string) int {
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}
