package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

func TestGoogleRoutes_Route(t *testing.T) {
	encoded := string(polyline.EncodeCoords([][]float64{
		{37.7749, -122.4194},
		{37.7800, -122.4100},
		{37.8249, -122.3694},
	}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, routesFieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body computeRoutesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123 Main St", body.Origin.Address)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{{
				"distanceMeters": 7321,
				"duration":       "1042s",
				"polyline":       map[string]string{"encodedPolyline": encoded},
			}},
		})
	}))
	defer srv.Close()

	g := NewGoogleRoutes("test-key", WithRoutesEndpoint(srv.URL))
	path, err := g.Route(context.Background(), "123 Main St", "456 Oak Ave")
	require.NoError(t, err)

	assert.Equal(t, 7321, path.DistanceMeters)
	assert.Equal(t, 1042, path.DurationSeconds)
	require.Len(t, path.Coordinates, 3)
	assert.InDelta(t, 37.7749, path.Coordinates[0].Lat, 1e-5)
	assert.InDelta(t, -122.3694, path.Coordinates[2].Lng, 1e-5)
}

func TestGoogleRoutes_Errors(t *testing.T) {
	_, err := NewGoogleRoutes("").Route(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrProviderDisabled)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err = NewGoogleRoutes("k", WithRoutesEndpoint(srv.URL)).Route(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "status 403")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer empty.Close()

	_, err = NewGoogleRoutes("k", WithRoutesEndpoint(empty.URL)).Route(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "no route")
}

func TestParseDurationSeconds(t *testing.T) {
	assert.Equal(t, 90, parseDurationSeconds("90s"))
	assert.Equal(t, 12, parseDurationSeconds("12.7s"))
	assert.Zero(t, parseDurationSeconds(""))
	assert.Zero(t, parseDurationSeconds("abc"))
}
