package series

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/fundcompare/backend/internal/contracts"
)

const document = "series"

// DisplayLayout formats a row date when the document has no display string
const DisplayLayout = "1/2/2006"

// dateLayouts are tried in order against AsOfDateFormatted
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses a document date. All dates are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type cell struct {
	value   float64
	present bool
}

// Row is the set of returns published for one as-of date
type Row struct {
	Date    time.Time
	Label   string
	returns map[string]cell
}

// Return looks up a share class in this row. Absent or null returns report false.
func (r Row) Return(classID string) (float64, bool) {
	c, ok := r.returns[classID]
	if !ok || !c.present {
		return 0, false
	}
	return c.value, true
}

// Index is the read-only return series, rows ordered newest first
// ⭐ SSOT: 수익률 시계열 조회는 이 인덱스에서만
type Index struct {
	rows []Row
}

type wireSeries struct {
	Data *[]wireRecord `json:"data" yaml:"data"`
}

type wireRecord struct {
	AsOfDateStr       string        `json:"AsOfDateStr" yaml:"AsOfDateStr"`
	AsOfDateFormatted *string       `json:"AsOfDateFormatted" yaml:"AsOfDateFormatted"`
	Returns           *[]wireReturn `json:"Returns" yaml:"Returns"`
}

type wireReturn struct {
	FundClassID *contracts.FlexID `json:"FundClassId" yaml:"FundClassId"`
	Return      *float64          `json:"Return" yaml:"Return"`
}

// Parse builds an Index from a JSON series document
func Parse(raw []byte) (*Index, error) {
	var doc wireSeries
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, contracts.NewParseError(document, err, "invalid JSON document")
	}
	return build(doc)
}

// ParseYAML builds an Index from a YAML series document with the same shape
func ParseYAML(raw []byte) (*Index, error) {
	var doc wireSeries
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, contracts.NewParseError(document, err, "invalid YAML document")
	}
	return build(doc)
}

func build(doc wireSeries) (*Index, error) {
	if doc.Data == nil {
		return nil, contracts.NewParseError(document, nil, "Invalid historical data format: data array not found")
	}

	rows := make([]Row, 0, len(*doc.Data))
	for i, rec := range *doc.Data {
		source := rec.AsOfDateStr
		if rec.AsOfDateFormatted != nil {
			source = *rec.AsOfDateFormatted
		}
		date, ok := ParseDate(source)
		if !ok {
			return nil, contracts.NewParseError(document, nil, "record #%d: unparseable date %q", i, source)
		}

		if rec.Returns == nil {
			return nil, contracts.NewParseError(document, nil, "record #%d (%s): Returns array not found", i, source)
		}

		row := Row{
			Date:    date,
			Label:   rec.AsOfDateStr,
			returns: make(map[string]cell, len(*rec.Returns)),
		}
		if strings.TrimSpace(row.Label) == "" {
			row.Label = date.Format(DisplayLayout)
		}

		for j, wr := range *rec.Returns {
			if wr.FundClassID == nil {
				return nil, contracts.NewParseError(document, nil, "record #%d return #%d lacks FundClassId", i, j)
			}
			id := wr.FundClassID.String()
			// first entry for a class wins
			if _, seen := row.returns[id]; seen {
				continue
			}
			if wr.Return == nil {
				row.returns[id] = cell{}
				continue
			}
			if math.IsNaN(*wr.Return) || math.IsInf(*wr.Return, 0) {
				return nil, contracts.NewParseError(document, nil, "record #%d (%s): class %s return is not a finite number", i, source, id)
			}
			row.returns[id] = cell{value: *wr.Return, present: true}
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Date.After(rows[b].Date)
	})

	return &Index{rows: rows}, nil
}

// Rows returns the date rows newest first; equal dates keep document order
func (idx *Index) Rows() []Row {
	out := make([]Row, len(idx.rows))
	copy(out, idx.rows)
	return out
}

// Len returns the number of date rows
func (idx *Index) Len() int {
	return len(idx.rows)
}

// AllDatesDescending returns row dates, newest first
func (idx *Index) AllDatesDescending() []time.Time {
	dates := make([]time.Time, len(idx.rows))
	for i, row := range idx.rows {
		dates[i] = row.Date
	}
	return dates
}

// ReturnFor looks up the return of a share class on a date.
// When several records share the date, the first one in document order that has a value wins.
func (idx *Index) ReturnFor(classID string, date time.Time) (float64, bool) {
	for _, row := range idx.rows {
		if !row.Date.Equal(date) {
			continue
		}
		if v, ok := row.Return(classID); ok {
			return v, true
		}
	}
	return 0, false
}

// Latest returns the newest date in the series
func (idx *Index) Latest() (time.Time, bool) {
	if len(idx.rows) == 0 {
		return time.Time{}, false
	}
	return idx.rows[0].Date, true
}
