package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/fundcompare/backend/internal/scheduler"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// JobScheduler is the part of *scheduler.Scheduler the job endpoints use
type JobScheduler interface {
	GetAllJobs() []string
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string, n int) ([]scheduler.JobResult, error)
	RunJob(ctx context.Context, jobName string) (scheduler.JobResult, error)
}

// JobHandler exposes housekeeping job status
type JobHandler struct {
	scheduler JobScheduler
	logger    *logger.Logger
}

// NewJobHandler creates a job handler
func NewJobHandler(sched JobScheduler, log *logger.Logger) *JobHandler {
	return &JobHandler{
		scheduler: sched,
		logger:    log,
	}
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// ListJobs returns stats of every scheduled job, by name
// GET /api/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.GetJobStats()

	out := make([]scheduler.JobStats, 0, len(stats))
	for _, name := range h.scheduler.GetAllJobs() {
		if st, ok := stats[name]; ok {
			out = append(out, st)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// JobHistory returns the latest results of one job
// GET /api/jobs/{name}/history?limit=10
func (h *JobHandler) JobHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := h.scheduler.GetJobHistory(mux.Vars(r)["name"], limit)
	if err != nil {
		h.jobError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// RunJob runs a job immediately and returns its result
// POST /api/jobs/{name}/run
func (h *JobHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	result, err := h.scheduler.RunJob(r.Context(), name)
	if err != nil {
		h.jobError(w, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"job":     name,
		"success": result.Success,
	}).Info("Job run on request")
	respondJSON(w, http.StatusOK, result)
}

func (h *JobHandler) jobError(w http.ResponseWriter, err error) {
	if errors.Is(err, scheduler.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
