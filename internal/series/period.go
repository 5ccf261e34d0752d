package series

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownPeriod is returned for a period code outside Periods()
var ErrUnknownPeriod = errors.New("unknown period")

// Period limits a history view to recent dates. The zero value keeps every row.
type Period string

const (
	PeriodAll         Period = ""
	PeriodOneMonth    Period = "1M"
	PeriodThreeMonths Period = "3M"
	PeriodSixMonths   Period = "6M"
	PeriodOneYear     Period = "1Y"
	PeriodThreeYears  Period = "3Y"
	PeriodFiveYears   Period = "5Y"
	PeriodYearToDate  Period = "YTD"
)

var periodLabels = map[Period]string{
	PeriodOneMonth:    "1 Month",
	PeriodThreeMonths: "3 Months",
	PeriodSixMonths:   "6 Months",
	PeriodOneYear:     "1 Year",
	PeriodThreeYears:  "3 Years",
	PeriodFiveYears:   "5 Years",
	PeriodYearToDate:  "Year to Date",
}

// Periods lists the selectable periods in dropdown order
func Periods() []Period {
	return []Period{
		PeriodOneMonth,
		PeriodThreeMonths,
		PeriodSixMonths,
		PeriodOneYear,
		PeriodThreeYears,
		PeriodFiveYears,
		PeriodYearToDate,
	}
}

// ParsePeriod accepts a period code in any case; empty means all rows
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	if p == PeriodAll {
		return PeriodAll, nil
	}
	if _, ok := periodLabels[p]; !ok {
		return PeriodAll, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// Label is the dropdown text of the period
func (p Period) Label() string {
	if p == PeriodAll {
		return "All"
	}
	return periodLabels[p]
}

// Cutoff returns the earliest date kept when the newest row is latest
func (p Period) Cutoff(latest time.Time) (time.Time, bool) {
	switch p {
	case PeriodOneMonth:
		return latest.AddDate(0, -1, 0), true
	case PeriodThreeMonths:
		return latest.AddDate(0, -3, 0), true
	case PeriodSixMonths:
		return latest.AddDate(0, -6, 0), true
	case PeriodOneYear:
		return latest.AddDate(-1, 0, 0), true
	case PeriodThreeYears:
		return latest.AddDate(-3, 0, 0), true
	case PeriodFiveYears:
		return latest.AddDate(-5, 0, 0), true
	case PeriodYearToDate:
		return time.Date(latest.Year(), time.January, 1, 0, 0, 0, 0, latest.Location()), true
	default:
		return time.Time{}, false
	}
}

// Window returns an index holding only the rows inside the period.
// The cutoff is measured from the newest row, not the wall clock.
func (idx *Index) Window(p Period) *Index {
	latest, ok := idx.Latest()
	if !ok {
		return idx
	}
	cutoff, ok := p.Cutoff(latest)
	if !ok {
		return idx
	}

	rows := make([]Row, 0, len(idx.rows))
	for _, row := range idx.rows {
		if !row.Date.Before(cutoff) {
			rows = append(rows, row)
		}
	}
	return &Index{rows: rows}
}
