package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/series"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// FundHandler serves the fund and share class dropdowns
// ⭐ SSOT: 카탈로그 API 핸들러는 이 구조체에서만
type FundHandler struct {
	catalog    *catalog.Index
	catalogErr error
	logger     *logger.Logger
}

// NewFundHandler creates a fund handler. When the catalog failed to load,
// pass its error and every catalog endpoint answers 503.
func NewFundHandler(cat *catalog.Index, catalogErr error, log *logger.Logger) *FundHandler {
	return &FundHandler{
		catalog:    cat,
		catalogErr: catalogErr,
		logger:     log,
	}
}

// FundResponse is one dropdown option
type FundResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ShareClassResponse is one share class option
type ShareClassResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// PeriodResponse is one period option
type PeriodResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (h *FundHandler) available(w http.ResponseWriter) bool {
	if h.catalog != nil {
		return true
	}
	respondError(w, http.StatusServiceUnavailable, contracts.UserMessage(contracts.OpLoadCatalog, h.catalogErr))
	return false
}

// ListFunds returns the funds in catalog order
// GET /api/funds
func (h *FundHandler) ListFunds(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	funds := h.catalog.Funds()
	result := make([]FundResponse, len(funds))
	for i, f := range funds {
		result[i] = FundResponse{ID: f.ID, Name: f.Name}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// ListShareClasses returns the share classes of one fund
// GET /api/funds/{fundId}/classes
func (h *FundHandler) ListShareClasses(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	fundID := mux.Vars(r)["fundId"]
	classes, err := h.catalog.ShareClasses(fundID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    shareClassResponses(classes),
	})
}

// ListPeriods returns the history periods
// GET /api/periods
func (h *FundHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods := series.Periods()
	result := make([]PeriodResponse, len(periods))
	for i, p := range periods {
		result[i] = PeriodResponse{Code: string(p), Label: p.Label()}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func shareClassResponses(classes []catalog.ShareClass) []ShareClassResponse {
	result := make([]ShareClassResponse, len(classes))
	for i, c := range classes {
		result[i] = ShareClassResponse{ID: c.ID, Name: c.Name, Label: c.Label()}
	}
	return result
}
