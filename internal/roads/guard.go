package roads

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
)

// MaxSnapDistanceMeters bounds how far a snapped point may move the input.
const MaxSnapDistanceMeters = 500.0

// Guard applies a Snapper opportunistically. Its result is always either
// the input or a point strictly closer than MaxSnapDistanceMeters to it.
type Guard struct {
	snapper Snapper
	timeout time.Duration
}

// NewGuard wraps snapper; a nil snapper makes Snap the identity.
func NewGuard(snapper Snapper, timeout time.Duration) *Guard {
	return &Guard{snapper: snapper, timeout: timeout}
}

// Snap never fails. Errors, timeouts and distant results yield c unchanged.
func (g *Guard) Snap(ctx context.Context, c models.Coordinate) models.Coordinate {
	if g == nil || g.snapper == nil {
		return c
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	snapped, err := g.snapper.Snap(ctx, c)
	if err != nil {
		if !errors.Is(err, ErrSnapperDisabled) {
			logrus.WithError(err).WithFields(logrus.Fields{
				"lat": c.Lat,
				"lng": c.Lng,
			}).Debug("Road snap failed; using unsnapped position.")
		}
		return c
	}

	if d := geo.DistanceMeters(c, snapped); d >= MaxSnapDistanceMeters {
		logrus.WithFields(logrus.Fields{
			"lat":        c.Lat,
			"lng":        c.Lng,
			"distance_m": d,
		}).Debug("Snapped point too far from position; discarded.")
		return c
	}
	return snapped
}
