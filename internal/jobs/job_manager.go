package jobs

import (
	"fmt"
)

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	statsJob *StatsJob
}

// NewJobManager creates a job manager with all required jobs.
func NewJobManager(source ActiveCounter, statsSchedule string) *JobManager {
	return &JobManager{
		statsJob: NewStatsJob(source, statsSchedule),
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.statsJob.Start(); err != nil {
		return fmt.Errorf("failed to start stats job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.statsJob.Stop()
}
