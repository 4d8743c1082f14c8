// Package geo holds the spherical geometry used to move a simulated vehicle
// along a path: great-circle distance, bearings, interpolation by progress
// and path smoothing.
package geo

import (
	"errors"
	"math"

	"delivery_tracker/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by every calculation here.
const EarthRadiusMeters = 6371000.0

// ErrEmptyPath is returned when an operation needs at least one point.
var ErrEmptyPath = errors.New("geo: empty path")

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b models.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b models.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// Destination returns the point reached by travelling meters from p on the
// given initial bearing along a great circle.
func Destination(p models.Coordinate, bearingDeg, meters float64) models.Coordinate {
	delta := meters / EarthRadiusMeters
	theta := toRadians(bearingDeg)
	lat1 := toRadians(p.Lat)
	lng1 := toRadians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return models.Coordinate{
		Lat: toDegrees(lat2),
		Lng: math.Mod(toDegrees(lng2)+540, 360) - 180,
	}
}

// Lerp linearly interpolates between a and b; t is not clamped.
func Lerp(a, b models.Coordinate, t float64) models.Coordinate {
	return models.Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// Interpolate returns the position at progress p along path. Progress at or
// below 0 yields the first point and at or above 1 the last point, exactly.
func Interpolate(path []models.Coordinate, p float64) (models.Coordinate, error) {
	n := len(path)
	if n == 0 {
		return models.Coordinate{}, ErrEmptyPath
	}
	if p <= 0 || n == 1 {
		return path[0], nil
	}
	if p >= 1 {
		return path[n-1], nil
	}

	pos := p * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return path[n-1], nil
	}
	return Lerp(path[i], path[i+1], pos-float64(i)), nil
}

// NearestIndex returns the index of the path point closest to c.
func NearestIndex(path []models.Coordinate, c models.Coordinate) (int, error) {
	if len(path) == 0 {
		return 0, ErrEmptyPath
	}
	best, bestDist := 0, math.Inf(1)
	for i, pt := range path {
		if d := DistanceMeters(pt, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// Length returns the summed great-circle length of path.
func Length(path []models.Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += DistanceMeters(path[i-1], path[i])
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
