package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
)

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-5 * time.Minute, "arriving now"},
		{0, "arriving now"},
		{20 * time.Second, "arriving now"},
		{time.Minute, "1 minute"},
		{80 * time.Second, "1 minute"},
		{45 * time.Minute, "45 minutes"},
		{60 * time.Minute, "1 hour"},
		{61 * time.Minute, "1 hour 1 minute"},
		{90 * time.Minute, "1 hour 30 minutes"},
		{120 * time.Minute, "2 hours"},
		{125 * time.Minute, "2 hours 5 minutes"},
		{121 * time.Minute, "2 hours 1 minute"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatETA(tt.in), tt.in.String())
	}
}

func TestTrafficBuffer(t *testing.T) {
	assert.Equal(t, 1.20, trafficBuffer(0))
	assert.Equal(t, 1.20, trafficBuffer(0.29))
	assert.Equal(t, 1.10, trafficBuffer(0.3))
	assert.Equal(t, 1.10, trafficBuffer(0.69))
	assert.Equal(t, 1.15, trafficBuffer(0.7))
	assert.Equal(t, 1.15, trafficBuffer(1))
}

func TestSpeedWeight(t *testing.T) {
	assert.Zero(t, speedWeight(0))
	assert.InDelta(t, 0.25, speedWeight(15*time.Second), 1e-9)
	assert.InDelta(t, 0.5, speedWeight(30*time.Second), 1e-9)
	assert.InDelta(t, 0.7, speedWeight(42*time.Second), 1e-9)
	assert.InDelta(t, 0.7, speedWeight(45*time.Second), 1e-9)
	assert.InDelta(t, 0.7, speedWeight(time.Minute), 1e-9)
	assert.InDelta(t, 0.7, speedWeight(time.Hour), 1e-9)
}

func straightTask(t *testing.T) *Task {
	t.Helper()
	start := models.Coordinate{Lat: 37.7749, Lng: -122.4194}
	route := make([]models.Coordinate, 21)
	for i := range route {
		route[i] = geo.Destination(start, 45, float64(i)*500)
	}
	require.InDelta(t, 10000, geo.Length(route), 1)
	return &Task{
		OrderID:             "ETA1",
		Route:               route,
		TotalDistanceMeters: 10000,
		PlannedDuration:     PlannedDuration(10000, models.VehicleRobot),
	}
}

func TestEstimateRemaining_AtStart(t *testing.T) {
	task := straightTask(t)
	got := EstimateRemaining(task, task.Route[0], 0)
	assert.InDelta(t, task.PlannedDuration.Seconds()*1.2, got.Seconds(), 1e-6)
}

func TestEstimateRemaining_OnSchedule(t *testing.T) {
	task := straightTask(t)
	elapsed := task.PlannedDuration / 2
	pos, err := geo.Interpolate(task.Route, 0.5)
	require.NoError(t, err)

	// Halfway on both time and distance: the speed-implied remaining time
	// equals the nominal one, leaving only the middle-band buffer.
	got := EstimateRemaining(task, pos, elapsed)
	assert.InDelta(t, (task.PlannedDuration-elapsed).Seconds()*1.10, got.Seconds(), 1)
}

func TestEstimateRemaining_TrendsDown(t *testing.T) {
	task := straightTask(t)

	var previous time.Duration
	for i, frac := range []float64{0.01, 0.25, 0.5, 0.75, 0.99} {
		elapsed := time.Duration(frac * float64(task.PlannedDuration))
		pos, err := geo.Interpolate(task.Route, frac)
		require.NoError(t, err)

		eta := EstimateRemaining(task, pos, elapsed)
		if i > 0 {
			assert.LessOrEqual(t, eta, previous, "progress %.2f", frac)
		}
		previous = eta
	}

	early := EstimateRemaining(task, task.Route[0], time.Second)
	late := EstimateRemaining(task, task.Route[len(task.Route)-1], task.PlannedDuration-time.Second)
	assert.GreaterOrEqual(t, early, late)
}

func TestEstimateRemaining_FastVehicleShortensETA(t *testing.T) {
	task := straightTask(t)
	elapsed := 5 * time.Minute

	onSchedule, _ := geo.Interpolate(task.Route, elapsed.Seconds()/task.PlannedDuration.Seconds())
	ahead := task.Route[12]

	assert.Less(t, EstimateRemaining(task, ahead, elapsed), EstimateRemaining(task, onSchedule, elapsed))
}
