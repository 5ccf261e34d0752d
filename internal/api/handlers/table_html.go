package handlers

import (
	"html/template"
	"net/http"

	"github.com/wonny/fundcompare/backend/internal/comparison"
)

// tableTemplate renders the history table fragment the page swaps in
var tableTemplate = template.Must(template.New("table").Parse(`<table class="history-table">
<thead>
<tr><th>Date</th>{{range .Columns}}<th data-selection="{{.ID}}">{{.Name}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Date}}</td>{{range .Cells}}<td{{if not .Value}} class="no-data"{{end}}>{{.Text}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
`))

// RenderTable writes the comparison table as an HTML fragment
func RenderTable(w http.ResponseWriter, table *comparison.Table) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tableTemplate.Execute(w, table)
}

// TableHTML returns the last built table as HTML
// GET /api/sessions/{id}/table.html
func (h *SessionHandler) TableHTML(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	table, visible := s.Table()
	if !visible {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := RenderTable(w, table); err != nil {
		h.logger.WithSession(s.ID).WithError(err).Error("Failed to render table")
	}
}
