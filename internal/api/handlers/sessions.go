package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/series"
	"github.com/wonny/fundcompare/backend/internal/session"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// Recorder receives command and push events for metrics
type Recorder interface {
	CommandFailed(op, kind string)
	PushClients(delta int)
}

type nopRecorder struct{}

func (nopRecorder) CommandFailed(string, string) {}
func (nopRecorder) PushClients(int)              {}

// SessionHandler exposes the selection commands of a session
// ⭐ SSOT: 세션 명령 API 핸들러는 이 구조체에서만
type SessionHandler struct {
	store      *session.Store
	catalogErr error
	recorder   Recorder
	logger     *logger.Logger
}

// NewSessionHandler creates a session handler. A nil store means the
// catalog is unavailable and every session endpoint answers 503.
func NewSessionHandler(store *session.Store, catalogErr error, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		store:      store,
		catalogErr: catalogErr,
		recorder:   nopRecorder{},
		logger:     log,
	}
}

// WithRecorder reports command failures to rec
func (h *SessionHandler) WithRecorder(rec Recorder) *SessionHandler {
	if rec != nil {
		h.recorder = rec
	}
	return h
}

// AddSelectionRequest is the body of an add command
type AddSelectionRequest struct {
	FundID  string `json:"fund_id"`
	ClassID string `json:"class_id"`
}

// CommandErrorResponse carries the prompt and the unchanged view
type CommandErrorResponse struct {
	Error string       `json:"error"`
	Kind  string       `json:"kind"`
	View  session.View `json:"view"`
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, contracts.UserMessage(contracts.OpLoadCatalog, h.catalogErr))
		return nil, false
	}

	id := mux.Vars(r)["id"]
	s, ok := h.store.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) commandFailed(w http.ResponseWriter, s *session.Session, op contracts.Operation, err error) {
	kind := contracts.Kind(err)
	h.recorder.CommandFailed(string(op), kind)

	respondJSON(w, statusFor(err), CommandErrorResponse{
		Error: contracts.UserMessage(op, err),
		Kind:  kind,
		View:  s.View(),
	})
}

// Create opens a session
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, contracts.UserMessage(contracts.OpLoadCatalog, h.catalogErr))
		return
	}

	s := h.store.New()
	respondJSON(w, http.StatusCreated, s.View())
}

// Get returns the current view
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.View())
}

// Delete closes a session
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.store.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// AddSelection selects a fund and share class
// POST /api/sessions/{id}/selections
func (h *SessionHandler) AddSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.Add(req.FundID, req.ClassID); err != nil {
		h.logger.WithSession(s.ID).WithError(err).WithFields(map[string]interface{}{
			"fund_id":  req.FundID,
			"class_id": req.ClassID,
		}).Debug("Add rejected")
		h.commandFailed(w, s, contracts.OpAdd, err)
		return
	}

	respondJSON(w, http.StatusCreated, s.View())
}

// RemoveSelection drops one selection tag. Unknown ids are a no-op.
// DELETE /api/sessions/{id}/selections/{selectionId}, where selectionId may contain slashes
func (h *SessionHandler) RemoveSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Remove(mux.Vars(r)["selectionId"])
	respondJSON(w, http.StatusOK, s.View())
}

// ClearSelections drops every selection
// DELETE /api/sessions/{id}/selections
func (h *SessionHandler) ClearSelections(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Clear()
	respondJSON(w, http.StatusOK, s.View())
}

// RequestHistory builds the comparison table
// POST /api/sessions/{id}/history?period=1Y
func (h *SessionHandler) RequestHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	period, err := series.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.RequestHistory(r.Context(), period); err != nil {
		h.logger.WithSession(s.ID).WithError(err).Warn("History request failed")
		h.commandFailed(w, s, contracts.OpHistory, err)
		return
	}

	respondJSON(w, http.StatusOK, s.View())
}
