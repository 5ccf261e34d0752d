package comparison

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/selection"
	"github.com/wonny/fundcompare/backend/internal/series"
)

// NoData is rendered where a selection has no return on a date
const NoData = "-"

// Column is one selection in the table header
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cell is a rendered return. Value is nil when Text is NoData.
type Cell struct {
	Value *float64 `json:"value"`
	Text  string   `json:"text"`
}

// Row is one as-of date with a cell per column
type Row struct {
	Date  string    `json:"date"`
	AsOf  time.Time `json:"as_of"`
	Cells []Cell    `json:"cells"`
}

// Table is the comparison of the selected share classes over time.
// Rows run newest first and cells follow column order.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Build joins the selections against the return series.
// ⭐ SSOT: 비교 테이블은 이 함수로만 생성 (요청마다 재계산)
func Build(selections []selection.Selection, idx *series.Index) (*Table, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("build comparison: %w", contracts.ErrEmptySelection)
	}
	if idx == nil {
		return nil, fmt.Errorf("build comparison: series not loaded")
	}

	table := &Table{
		Columns: make([]Column, len(selections)),
	}
	for i, sel := range selections {
		table.Columns[i] = Column{ID: sel.ID, Name: sel.Name}
	}

	rows := idx.Rows()
	table.Rows = make([]Row, len(rows))
	for i, r := range rows {
		cells := make([]Cell, len(selections))
		for j, sel := range selections {
			cells[j] = newCell(r.Return(sel.ClassID))
		}
		table.Rows[i] = Row{
			Date:  r.Label,
			AsOf:  r.Date,
			Cells: cells,
		}
	}

	return table, nil
}

// BuildPeriod builds the table over the rows inside period
func BuildPeriod(selections []selection.Selection, idx *series.Index, period series.Period) (*Table, error) {
	if idx != nil {
		idx = idx.Window(period)
	}
	return Build(selections, idx)
}

func newCell(v float64, ok bool) Cell {
	if !ok {
		return Cell{Text: NoData}
	}
	return Cell{Value: &v, Text: FormatReturn(v)}
}

// FormatReturn renders a return with exactly two decimals.
// NaN and infinities render as NoData.
func FormatReturn(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoData
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
