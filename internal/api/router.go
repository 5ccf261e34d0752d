package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/fundcompare/backend/internal/api/handlers"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// RouterDeps are the handlers and middleware inputs of the router
type RouterDeps struct {
	Funds    *handlers.FundHandler
	Sessions *handlers.SessionHandler
	Jobs     *handlers.JobHandler // nil disables /api/jobs
	Metrics  *Metrics             // nil disables /metrics and request metrics
	Limiter  *rate.Limiter
}

// NewLimiter allows perSecond API requests per second with an equal burst.
// Zero or less disables throttling.
func NewLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/funds", deps.Funds.ListFunds).Methods("GET")
	api.HandleFunc("/funds/{fundId}/classes", deps.Funds.ListShareClasses).Methods("GET")
	api.HandleFunc("/periods", deps.Funds.ListPeriods).Methods("GET")

	// Sessions
	api.HandleFunc("/sessions", deps.Sessions.Create).Methods("POST")
	api.HandleFunc("/sessions/{id}", deps.Sessions.Get).Methods("GET")
	api.HandleFunc("/sessions/{id}", deps.Sessions.Delete).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/selections", deps.Sessions.AddSelection).Methods("POST")
	api.HandleFunc("/sessions/{id}/selections", deps.Sessions.ClearSelections).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/selections/{selectionId:.+}", deps.Sessions.RemoveSelection).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/history", deps.Sessions.RequestHistory).Methods("POST")
	api.HandleFunc("/sessions/{id}/table.html", deps.Sessions.TableHTML).Methods("GET")
	api.HandleFunc("/sessions/{id}/ws", deps.Sessions.Push).Methods("GET")

	// Housekeeping jobs
	if deps.Jobs != nil {
		api.HandleFunc("/jobs", deps.Jobs.ListJobs).Methods("GET")
		api.HandleFunc("/jobs/{name}/history", deps.Jobs.JobHistory).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", deps.Jobs.RunJob).Methods("POST")
	}

	if deps.Limiter != nil {
		api.Use(rateLimitMiddleware(deps.Limiter))
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": logger.ServiceName,
	})
}

// statusRecorder captures the response code for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrade through the wrapper
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func wrap(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrap(w)

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// metricsMiddleware counts requests per route template
func metricsMiddleware(m *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrap(w)

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// rateLimitMiddleware rejects requests beyond the limiter's rate
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
