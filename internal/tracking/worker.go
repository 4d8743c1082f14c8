package tracking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
)

// run ticks task until it completes, is stopped or the service shuts down.
func (s *Service) run(ctx context.Context, task *Task) {
	defer s.wg.Done()
	defer task.cancel()

	interval := s.tickInterval
	if interval <= 0 {
		interval = TickInterval(task.PlannedDuration)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"order_id": task.OrderID,
		"interval": interval.String(),
	}).Debug("Position worker started.")

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("order_id", task.OrderID).Debug("Position worker exiting: cancelled.")
			return
		case <-ticker.C:
			if !s.tick(ctx, task) {
				logrus.WithField("order_id", task.OrderID).Debug("Position worker exiting: task finished.")
				return
			}
		}
	}
}

// tick advances task once and reports whether the worker should keep going.
// A tick never propagates a failure: panics are logged and the next tick runs.
func (s *Service) tick(ctx context.Context, task *Task) (more bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": task.OrderID,
				"panic":    r,
			}).Error("Position tick failed.")
			more = true
		}
	}()

	if !s.registry.Holds(task) {
		return false
	}

	now := s.now()
	elapsed := now.Sub(task.StartTime)
	if elapsed >= task.PlannedDuration {
		s.complete(task, now)
		return false
	}

	raw, err := geo.Interpolate(task.Route, task.Progress(now))
	if err != nil {
		logrus.WithError(err).WithField("order_id", task.OrderID).Error("Position interpolation failed.")
		return true
	}
	position := raw
	if s.snapper != nil {
		position = s.snapper.Snap(ctx, raw)
	}
	eta := FormatETA(EstimateRemaining(task, position, elapsed))

	task.emitIfActive(s.registry, s.publisher, models.TrackingUpdate{
		OrderID:         task.OrderID,
		Status:          models.StatusLocationUpdate,
		Message:         "Delivery in progress",
		ETA:             &eta,
		Timestamp:       now,
		CurrentLocation: &position,
	})
	return true
}

func (s *Service) complete(task *Task, now time.Time) {
	if !s.registry.RemoveTask(task) {
		return
	}
	final := task.Route[len(task.Route)-1]
	eta := FormatETA(0)
	task.finish(s.publisher, models.TrackingUpdate{
		OrderID:         task.OrderID,
		Status:          models.StatusCompleted,
		Message:         "Delivery completed",
		ETA:             &eta,
		Timestamp:       now,
		CurrentLocation: &final,
	})
	logrus.WithFields(logrus.Fields{
		"order_id":   task.OrderID,
		"elapsed":    now.Sub(task.StartTime).String(),
		"distance_m": task.TotalDistanceMeters,
	}).Info("Delivery completed.")
}
