// Package jobs runs scheduled background work alongside the tracker.
package jobs

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/tracking"
)

// ActiveCounter reports deliveries in flight.
type ActiveCounter interface {
	ActiveDetails() []tracking.Details
}

// StatsJob periodically logs a summary of active deliveries.
type StatsJob struct {
	source   ActiveCounter
	schedule string
	cron     *cron.Cron
	log      *logrus.Entry
}

// NewStatsJob creates a job that runs on schedule (standard cron expression or
// descriptors such as "@every 1m").
func NewStatsJob(source ActiveCounter, schedule string) *StatsJob {
	return &StatsJob{
		source:   source,
		schedule: schedule,
		cron:     cron.New(),
		log:      logrus.WithField("component", "stats_job"),
	}
}

// Start registers the job and starts its scheduler.
func (j *StatsJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}
	j.cron.Start()
	j.log.WithField("schedule", j.schedule).Info("Stats job started")
	return nil
}

// Run logs one summary.
func (j *StatsJob) Run() {
	details := j.source.ActiveDetails()
	if len(details) == 0 {
		j.log.Debug("No active deliveries")
		return
	}

	var progress float64
	sources := map[string]int{}
	for _, d := range details {
		progress += d.Progress
		sources[string(d.RouteSource)]++
	}
	j.log.WithFields(logrus.Fields{
		"active":           len(details),
		"avg_progress_pct": progress / float64(len(details)),
		"route_sources":    sources,
	}).Info("Active delivery summary")
}

// Stop halts the scheduler, waiting for a running summary to finish.
func (j *StatsJob) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("Stats job stopped")
}
