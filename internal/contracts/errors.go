package contracts

import (
	"errors"
	"fmt"
)

// MaxSelections caps how many (fund, class) pairs can be compared at once
const MaxSelections = 5

// Error taxonomy shared by every layer. Wrap with %w and test with errors.Is.
// ⭐ SSOT: 사용자에게 보이는 오류 종류는 여기서만 정의
var (
	// ErrFetchFailure is a transport or HTTP-level failure fetching a document
	ErrFetchFailure = errors.New("fetch failure")

	// ErrParse is a malformed or structurally invalid document
	ErrParse = errors.New("parse error")

	// ErrNotFound is a fund or share class id that is absent from the catalog
	ErrNotFound = errors.New("not found")

	// ErrAlreadySelected is an add of a (fund, class) pair already in the selection
	ErrAlreadySelected = errors.New("already selected")

	// ErrLimitExceeded is an add when the selection is full
	ErrLimitExceeded = errors.New("selection limit exceeded")

	// ErrEmptySelection is a table build with nothing selected
	ErrEmptySelection = errors.New("empty selection")
)

// ParseError describes why a document was rejected
type ParseError struct {
	Document string // "catalog" or "series"
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %s", e.Document, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every ParseError match ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError builds a ParseError with a formatted reason
func NewParseError(document string, err error, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Document: document,
		Reason:   fmt.Sprintf(format, args...),
		Err:      err,
	}
}

// FetchError wraps a transport failure for a document location
type FetchError struct {
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Location, e.Err)
}

// Is makes every FetchError match ErrFetchFailure
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Operation names the user action a failure happened in
type Operation string

const (
	OpLoadCatalog Operation = "load_catalog"
	OpAdd         Operation = "add"
	OpHistory     Operation = "history"
)

// UserMessage maps a failure to the prompt shown to the user
func UserMessage(op Operation, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadySelected):
		return "This fund and share class combination is already selected"
	case errors.Is(err, ErrLimitExceeded):
		return fmt.Sprintf("You can select up to %d funds only", MaxSelections)
	case errors.Is(err, ErrNotFound):
		return "Please select both a fund and a share class"
	case errors.Is(err, ErrEmptySelection):
		return "Please select at least one fund to view history"
	}

	switch op {
	case OpLoadCatalog:
		return "Failed to load dropdown data. Please try again later."
	case OpHistory:
		return "Failed to load historical data. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// Kind returns a stable label for metrics and API payloads
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrFetchFailure):
		return "fetch_failure"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadySelected):
		return "already_selected"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"
	default:
		return "internal"
	}
}
