// Package store caches provider routes in Postgres through gorm.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/routing"
)

// RouteStore implements routing.Store on a gorm handle.
type RouteStore struct {
	db *gorm.DB
}

// NewRouteStore wraps db; the routes table must already be migrated.
func NewRouteStore(db *gorm.DB) *RouteStore {
	return &RouteStore{db: db}
}

// Lookup returns the cached path for the address pair, if any.
func (s *RouteStore) Lookup(ctx context.Context, origin, destination string) (routing.Path, bool, error) {
	var route models.Route
	err := s.db.WithContext(ctx).
		Where("origin = ? AND destination = ?", routing.NormalizeAddress(origin), routing.NormalizeAddress(destination)).
		First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return routing.Path{}, false, nil
	}
	if err != nil {
		return routing.Path{}, false, fmt.Errorf("store.Lookup: %w", err)
	}

	coords, err := DecodeLineString(route.Geometry)
	if err != nil {
		return routing.Path{}, false, fmt.Errorf("store.Lookup decode geometry for route %d: %w", route.ID, err)
	}
	return routing.Path{
		Coordinates:     coords,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
	}, true, nil
}

// Save upserts the path for the address pair.
func (s *RouteStore) Save(ctx context.Context, origin, destination string, path routing.Path) error {
	geometry, err := EncodeLineString(path.Coordinates)
	if err != nil {
		return fmt.Errorf("store.Save encode geometry: %w", err)
	}

	route := models.Route{
		Origin:          routing.NormalizeAddress(origin),
		Destination:     routing.NormalizeAddress(destination),
		Geometry:        geometry,
		DistanceMeters:  path.DistanceMeters,
		DurationSeconds: path.DurationSeconds,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "origin"}, {Name: "destination"}},
		DoUpdates: clause.AssignmentColumns([]string{"geometry", "distance_meters", "duration_seconds", "updated_at"}),
	}).Create(&route).Error
	if err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	return nil
}

// EncodeLineString converts coordinates to little-endian WKB.
func EncodeLineString(coords []models.Coordinate) ([]byte, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c.Lng, c.Lat)
	}
	ls := geom.NewLineStringFlat(geom.XY, flat).SetSRID(4326)
	return wkb.Marshal(ls, binary.LittleEndian)
}

// DecodeLineString is the inverse of EncodeLineString.
func DecodeLineString(b []byte) ([]models.Coordinate, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("expected LineString, got %T", g)
	}
	coords := make([]models.Coordinate, 0, ls.NumCoords())
	for i := range ls.NumCoords() {
		c := ls.Coord(i)
		coords = append(coords, models.Coordinate{Lat: c.Y(), Lng: c.X()})
	}
	return coords, nil
}
