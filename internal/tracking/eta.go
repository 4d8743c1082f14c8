package tracking

import (
	"fmt"
	"math"
	"time"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
)

const (
	maxSpeedWeight     = 0.7
	speedWeightRampSec = 60.0
)

// EstimateRemaining blends the nominal remaining time with the time implied
// by the speed observed so far, then inflates it by a traffic buffer that
// depends on how far along the route the position is.
func EstimateRemaining(t *Task, position models.Coordinate, elapsed time.Duration) time.Duration {
	nominal := math.Max(0, (t.PlannedDuration - elapsed).Seconds())

	progress := routeProgress(t.Route, position)
	total := float64(t.TotalDistanceMeters)
	remainingDist := (1 - progress) * total
	travelled := progress * total

	remaining := nominal
	if sec := elapsed.Seconds(); sec > 0 && travelled > 0 && remainingDist > 0 {
		implied := remainingDist / (travelled / sec)
		w := speedWeight(elapsed)
		remaining = (1-w)*nominal + w*implied
	}

	remaining *= trafficBuffer(progress)
	return time.Duration(remaining * float64(time.Second))
}

// routeProgress is the index of the route point nearest position as a
// fraction of the route length.
func routeProgress(route []models.Coordinate, position models.Coordinate) float64 {
	if len(route) < 2 {
		return 1
	}
	idx, err := geo.NearestIndex(route, position)
	if err != nil {
		return 0
	}
	return float64(idx) / float64(len(route)-1)
}

// speedWeight is elapsed seconds over 60, capped at maxSpeedWeight.
func speedWeight(elapsed time.Duration) float64 {
	return math.Min(elapsed.Seconds()/speedWeightRampSec, maxSpeedWeight)
}

func trafficBuffer(progress float64) float64 {
	switch {
	case progress < 0.3:
		return 1.20
	case progress < 0.7:
		return 1.10
	default:
		return 1.15
	}
}

// FormatETA renders d as whole minutes, e.g. "arriving now", "1 minute",
// "2 hours 5 minutes".
func FormatETA(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	if minutes <= 0 {
		return "arriving now"
	}
	if minutes < 60 {
		return plural(minutes, "minute")
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(rest, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
