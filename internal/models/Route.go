package models

import (
	"gorm.io/gorm"
)

// Route is a provider route cached by origin/destination pair.
type Route struct {
	gorm.Model

	Origin      string `gorm:"size:512;not null;uniqueIndex:idx_route_pair" json:"origin"`
	Destination string `gorm:"size:512;not null;uniqueIndex:idx_route_pair" json:"destination"`

	// LINESTRING as little-endian WKB (SRID 4326, x=lng y=lat)
	Geometry []byte `gorm:"type:bytea"`

	DistanceMeters  int `json:"distance_meters"`
	DurationSeconds int `json:"duration_seconds"`
}
