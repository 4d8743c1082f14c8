package tracking

import (
	"math"
	"time"

	"delivery_tracker/internal/models"
)

const (
	minPlannedMinutes = 15
	maxPlannedMinutes = 120
	minBufferMinutes  = 5
	maxBufferMinutes  = 10

	updatesPerMinute = 2
)

// PlannedDuration is the fixed simulated duration of a trip: travel time at
// the vehicle's cruising speed rounded up to whole minutes, plus a 10%
// buffer of between 5 and 10 minutes, clamped to [15, 120] minutes.
func PlannedDuration(distanceMeters int, vehicle models.VehicleType) time.Duration {
	km := float64(max(distanceMeters, 0)) / 1000
	base := int(math.Ceil(km/vehicle.SpeedKmh()*60 - 1e-9))
	buffer := min(max(base/10, minBufferMinutes), maxBufferMinutes)
	total := min(max(base+buffer, minPlannedMinutes), maxPlannedMinutes)
	return time.Duration(total) * time.Minute
}

// TickInterval spaces updates so that every planned minute gets two of them.
func TickInterval(planned time.Duration) time.Duration {
	minutes := int64(math.Round(planned.Minutes()))
	if minutes <= 0 {
		return time.Minute / updatesPerMinute
	}
	return planned / time.Duration(updatesPerMinute*minutes)
}
