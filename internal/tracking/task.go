package tracking

import (
	"context"
	"sync"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/routing"
)

// Task is one simulated delivery in flight. Its exported fields are written
// once by Start and never change afterwards.
type Task struct {
	OrderID             string
	Origin              string
	Destination         string
	VehicleType         models.VehicleType
	Route               []models.Coordinate
	TotalDistanceMeters int
	PlannedDuration     time.Duration
	StartTime           time.Time
	RouteSource         routing.Source

	cancel context.CancelFunc

	// emitMu orders this task's broadcasts; finished is set by the single
	// terminal event and suppresses anything after it.
	emitMu   sync.Mutex
	finished bool
}

// Progress is the elapsed fraction of the planned duration, clamped to [0,1].
func (t *Task) Progress(now time.Time) float64 {
	if t.PlannedDuration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.StartTime)) / float64(t.PlannedDuration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// emitIfActive publishes update unless the task has been deregistered or
// already produced its terminal event.
func (t *Task) emitIfActive(reg *Registry, pub Publisher, update models.TrackingUpdate) bool {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	if t.finished || !reg.Holds(t) {
		return false
	}
	pub.Publish(update)
	return true
}

// finish publishes the terminal update. Callers must have just removed the
// task from the registry, which happens at most once.
func (t *Task) finish(pub Publisher, update models.TrackingUpdate) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.finished = true
	pub.Publish(update)
	if t.cancel != nil {
		t.cancel()
	}
}
