package geo

import "delivery_tracker/internal/models"

const (
	densifyThresholdMeters = 100.0
	densifySpacingMeters   = 50.0
	maxInsertedPoints      = 5
)

// Densify inserts evenly spaced points between consecutive points that are
// more than 100 m apart: one per ~50 m, at most five per segment.
func Densify(path []models.Coordinate) []models.Coordinate {
	if len(path) < 2 {
		return append([]models.Coordinate(nil), path...)
	}

	out := make([]models.Coordinate, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		if d := DistanceMeters(a, b); d > densifyThresholdMeters {
			extra := min(int(d/densifySpacingMeters), maxInsertedPoints)
			for k := 1; k <= extra; k++ {
				out = append(out, Lerp(a, b, float64(k)/float64(extra+1)))
			}
		}
		out = append(out, b)
	}
	return out
}

// Smooth densifies path and applies a 0.25/0.5/0.25 moving average to the
// interior points. The first and last points are never moved.
func Smooth(path []models.Coordinate) []models.Coordinate {
	dense := Densify(path)
	if len(dense) < 3 {
		return dense
	}

	out := make([]models.Coordinate, len(dense))
	out[0] = dense[0]
	out[len(dense)-1] = dense[len(dense)-1]
	for i := 1; i < len(dense)-1; i++ {
		prev, cur, next := dense[i-1], dense[i], dense[i+1]
		out[i] = models.Coordinate{
			Lat: 0.25*prev.Lat + 0.5*cur.Lat + 0.25*next.Lat,
			Lng: 0.25*prev.Lng + 0.5*cur.Lng + 0.25*next.Lng,
		}
	}
	return out
}
