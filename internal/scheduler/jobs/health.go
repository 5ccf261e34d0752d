package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/fundcompare/backend/pkg/database"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// HealthChecker reports database health. *database.DB satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// FeedStoreHealthJob pings the feed_documents database so outages show up
// in the logs before a history request hits them
type FeedStoreHealthJob struct {
	db     HealthChecker
	logger *logger.Logger
}

// NewFeedStoreHealthJob creates the health check job
func NewFeedStoreHealthJob(db HealthChecker, log *logger.Logger) *FeedStoreHealthJob {
	return &FeedStoreHealthJob{db: db, logger: log}
}

// Name returns the job name
func (j *FeedStoreHealthJob) Name() string {
	return "feed_store_health"
}

// Schedule returns the cron schedule (every minute)
func (j *FeedStoreHealthJob) Schedule() string {
	return "30 * * * * *"
}

// Run checks the pool and logs its state
func (j *FeedStoreHealthJob) Run(ctx context.Context) error {
	status, err := j.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("feed store health check: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"response_time": status.ResponseTime.String(),
		"total_conns":   status.TotalConns,
		"idle_conns":    status.IdleConns,
	}).Debug("Feed store healthy")

	return nil
}
