// Package tracking runs simulated deliveries: it builds a task from an
// acquired route, moves it along that route on a ticker and publishes
// position, ETA and lifecycle updates.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
	"delivery_tracker/internal/routing"
)

var (
	// ErrEmptyRoute is returned when no coordinates could be derived for a delivery.
	ErrEmptyRoute = errors.New("tracking: route has no coordinates")
	// ErrInvalidRequest is returned for start requests missing required fields.
	ErrInvalidRequest = errors.New("tracking: invalid start request")
	// ErrShuttingDown is returned by Start once Shutdown has begun.
	ErrShuttingDown = errors.New("tracking: service is shutting down")
)

// Publisher receives every update the service emits.
type Publisher interface {
	Publish(update models.TrackingUpdate)
}

// RouteAcquirer resolves a path between two addresses and never fails.
type RouteAcquirer interface {
	Acquire(ctx context.Context, origin, destination string) routing.Acquired
}

// Snapper corrects a position onto the road network, returning the input
// when it cannot.
type Snapper interface {
	Snap(ctx context.Context, c models.Coordinate) models.Coordinate
}

// StartRequest describes a delivery to simulate.
type StartRequest struct {
	OrderID     string
	Origin      string
	Destination string
	VehicleType string
}

// Details is a point-in-time view of an active delivery.
type Details struct {
	OrderID         string              `json:"orderId"`
	Origin          string              `json:"origin"`
	Destination     string              `json:"destination"`
	VehicleType     models.VehicleType  `json:"vehicleType"`
	Status          string              `json:"status"`
	CurrentLocation models.Coordinate   `json:"currentLocation"`
	Route           []models.Coordinate `json:"-"`
	ETA             string              `json:"eta"`
	Progress        float64             `json:"progress"`
	DistanceMeters  int                 `json:"distanceMeters"`
	DurationSeconds int                 `json:"durationSeconds"`
	StartedAt       time.Time           `json:"startedAt"`
	RouteSource     routing.Source      `json:"routeSource"`
}

// Service owns the registry and one worker goroutine per active task.
type Service struct {
	registry  *Registry
	routes    RouteAcquirer
	snapper   Snapper
	publisher Publisher

	now          func() time.Time
	tickInterval time.Duration

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	// lifecycle is held for reading while a task is registered and its
	// worker accounted for; Shutdown takes it for writing to set closed.
	lifecycle sync.RWMutex
	closed    bool
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTickInterval fixes the tick cadence instead of deriving it from the
// planned duration.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tickInterval = d }
}

// WithRegistry shares an existing registry.
func WithRegistry(r *Registry) Option {
	return func(s *Service) { s.registry = r }
}

// NewService wires a Service. snapper may be nil.
func NewService(routes RouteAcquirer, snapper Snapper, publisher Publisher, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:  NewRegistry(),
		routes:    routes,
		snapper:   snapper,
		publisher: publisher,
		now:       time.Now,
		baseCtx:   ctx,
		cancelAll: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start acquires a route and begins simulating the delivery. A second start
// for an order that is still active is rejected with ErrAlreadyTracking and
// publishes nothing.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Task, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if s.isClosed() {
		return nil, ErrShuttingDown
	}
	if _, active := s.registry.Get(req.OrderID); active {
		return nil, ErrAlreadyTracking
	}

	log := logrus.WithFields(logrus.Fields{
		"order_id":     req.OrderID,
		"origin":       req.Origin,
		"destination":  req.Destination,
		"vehicle_type": req.VehicleType,
	})

	acquired := s.routes.Acquire(ctx, req.Origin, req.Destination)
	route := geo.Smooth(acquired.Path.Coordinates)
	if len(route) == 0 {
		log.WithField("route_source", acquired.Source).Error("Delivery start failed: route has no coordinates.")
		s.publisher.Publish(models.TrackingUpdate{
			OrderID:   req.OrderID,
			Status:    models.StatusFailed,
			Message:   "Delivery start failed: " + ErrEmptyRoute.Error(),
			Timestamp: s.now(),
		})
		return nil, ErrEmptyRoute
	}

	distance := acquired.Path.DistanceMeters
	if distance <= 0 {
		distance = max(1, int(math.Round(geo.Length(route))))
	}
	vehicle := models.ParseVehicleType(req.VehicleType)

	workerCtx, cancel := context.WithCancel(s.baseCtx)
	task := &Task{
		OrderID:             req.OrderID,
		Origin:              req.Origin,
		Destination:         req.Destination,
		VehicleType:         vehicle,
		Route:               route,
		TotalDistanceMeters: distance,
		PlannedDuration:     PlannedDuration(distance, vehicle),
		StartTime:           s.now(),
		RouteSource:         acquired.Source,
		cancel:              cancel,
	}

	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()
	if s.closed {
		cancel()
		return nil, ErrShuttingDown
	}

	// Holding emitMu across Insert keeps a racing Stop from publishing
	// CANCELLED ahead of STARTED.
	task.emitMu.Lock()
	if err := s.registry.Insert(task); err != nil {
		task.emitMu.Unlock()
		cancel()
		return nil, err
	}
	eta := FormatETA(task.PlannedDuration)
	first := task.Route[0]
	s.publisher.Publish(models.TrackingUpdate{
		OrderID:         task.OrderID,
		Status:          models.StatusStarted,
		Message:         "Delivery started",
		ETA:             &eta,
		Timestamp:       task.StartTime,
		CurrentLocation: &first,
	})
	task.emitMu.Unlock()

	s.wg.Add(1)
	go s.run(workerCtx, task)

	log.WithFields(logrus.Fields{
		"route_source":    task.RouteSource,
		"points":          len(task.Route),
		"distance_m":      task.TotalDistanceMeters,
		"planned_minutes": task.PlannedDuration.Minutes(),
	}).Info("Delivery tracking started.")
	return task, nil
}

// Stop cancels the delivery for orderID. It reports false, and publishes
// nothing, when the order is not active.
func (s *Service) Stop(orderID string) bool {
	task, ok := s.registry.Remove(orderID)
	if !ok {
		logrus.WithField("order_id", orderID).Debug("Stop requested for inactive order; ignoring.")
		return false
	}

	task.finish(s.publisher, models.TrackingUpdate{
		OrderID:   orderID,
		Status:    models.StatusCancelled,
		Message:   "Delivery cancelled",
		Timestamp: s.now(),
	})
	logrus.WithField("order_id", orderID).Info("Delivery tracking stopped.")
	return true
}

// Active returns the sorted ids of deliveries in flight.
func (s *Service) Active() []string {
	return s.registry.OrderIDs()
}

// ActiveDetails describes every delivery in flight at this instant.
func (s *Service) ActiveDetails() []Details {
	now := s.now()
	tasks := s.registry.Snapshot()
	out := make([]Details, 0, len(tasks))
	for _, t := range tasks {
		if d, ok := describe(t, now); ok {
			out = append(out, d)
		}
	}
	return out
}

// Details describes the delivery for orderID, if it is in flight.
func (s *Service) Details(orderID string) (Details, bool) {
	t, ok := s.registry.Get(orderID)
	if !ok {
		return Details{}, false
	}
	return describe(t, s.now())
}

func describe(t *Task, now time.Time) (Details, bool) {
	progress := t.Progress(now)
	pos, err := geo.Interpolate(t.Route, progress)
	if err != nil {
		return Details{}, false
	}
	return Details{
		OrderID:         t.OrderID,
		Origin:          t.Origin,
		Destination:     t.Destination,
		VehicleType:     t.VehicleType,
		Status:          "in_transit",
		CurrentLocation: pos,
		Route:           t.Route,
		ETA:             FormatETA(EstimateRemaining(t, pos, now.Sub(t.StartTime))),
		Progress:        math.Round(progress*1000) / 10,
		DistanceMeters:  t.TotalDistanceMeters,
		DurationSeconds: int(t.PlannedDuration.Seconds()),
		StartedAt:       t.StartTime,
		RouteSource:     t.RouteSource,
	}, true
}

func (s *Service) isClosed() bool {
	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()
	return s.closed
}

// Len returns the number of deliveries in flight.
func (s *Service) Len() int {
	return s.registry.Len()
}

// Shutdown stops every worker and waits for them to exit or for ctx to end.
// Active deliveries are dropped without a terminal broadcast.
func (s *Service) Shutdown(ctx context.Context) error {
	s.lifecycle.Lock()
	s.closed = true
	s.lifecycle.Unlock()

	s.cancelAll()
	for _, t := range s.registry.Snapshot() {
		s.registry.RemoveTask(t)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logrus.Info("Tracking service stopped.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tracking.Shutdown: %w", ctx.Err())
	}
}
