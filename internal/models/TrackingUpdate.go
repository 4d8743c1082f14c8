package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle stage carried by a TrackingUpdate.
type Status string

const (
	StatusStarted        Status = "STARTED"
	StatusLocationUpdate Status = "LOCATION_UPDATE"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusFailed         Status = "FAILED"
)

// Terminal reports whether no further updates follow this status for the order.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// TrackingUpdate is one broadcast event about a delivery.
// ETA serialises as null when unknown; CurrentLocation is omitted when unknown.
type TrackingUpdate struct {
	OrderID         string      `json:"orderId"`
	Status          Status      `json:"status"`
	Message         string      `json:"message"`
	ETA             *string     `json:"eta"`
	Timestamp       time.Time   `json:"timestamp"`
	CurrentLocation *Coordinate `json:"currentLocation,omitempty"`
}

// MarshalJSON pins the timestamp to UTC ISO-8601 with millisecond precision.
func (u TrackingUpdate) MarshalJSON() ([]byte, error) {
	type alias TrackingUpdate
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*alias
	}{
		Timestamp: u.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		alias:     (*alias)(&u),
	})
}
