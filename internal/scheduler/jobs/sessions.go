package jobs

import (
	"context"
	"time"

	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// SessionStore is the part of session.Store the reaper needs
type SessionStore interface {
	Reap(idle time.Duration) int
	Len() int
}

// SessionReaperJob closes sessions nobody has touched for a while
type SessionReaperJob struct {
	store    SessionStore
	idle     time.Duration
	schedule string
	logger   *logger.Logger
}

// NewSessionReaperJob creates a reaper for sessions idle longer than idle
func NewSessionReaperJob(store SessionStore, idle time.Duration, schedule string, log *logger.Logger) *SessionReaperJob {
	return &SessionReaperJob{
		store:    store,
		idle:     idle,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SessionReaperJob) Name() string {
	return "session_reaper"
}

// Schedule returns the cron schedule (every 10 minutes by default)
func (j *SessionReaperJob) Schedule() string {
	if j.schedule == "" {
		return "0 */10 * * * *"
	}
	return j.schedule
}

// Run evicts idle sessions
func (j *SessionReaperJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed := j.store.Reap(j.idle)
	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"live":    j.store.Len(),
		}).Info("Idle sessions reaped")
	}

	return nil
}
