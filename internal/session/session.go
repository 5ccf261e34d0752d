package session

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/comparison"
	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/selection"
	"github.com/wonny/fundcompare/backend/internal/series"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// SeriesLoader provides the return series on demand. *feed.SeriesLoader satisfies it.
type SeriesLoader interface {
	Load(ctx context.Context) (*series.Index, error)
}

// View is everything a presentation layer renders for one session.
// Seq grows with every change, so a larger Seq is a newer view.
type View struct {
	SessionID    string                `json:"session_id"`
	Seq          uint64                `json:"seq"`
	Selections   []selection.Selection `json:"selections"`
	ClearEnabled bool                  `json:"clear_enabled"`
	TableVisible bool                  `json:"table_visible"`
	Table        *comparison.Table     `json:"table,omitempty"`
	Period       series.Period         `json:"period"`
	Notification string                `json:"notification,omitempty"`
}

// Session is one user's selection state and last rendered table.
// Commands are serialized, so the selection is never seen half updated.
type Session struct {
	ID string

	catalog *catalog.Index
	loader  SeriesLoader
	logger  *logger.Logger
	now     func() time.Time

	mu           sync.Mutex
	manager      *selection.Manager
	table        *comparison.Table
	tableVisible bool
	period       series.Period
	notification string
	lastSeen     time.Time
	changed      bool
	seq          uint64
	subscribers  map[int]func(View)
	nextSub      int

	// orders deliveries so a subscriber never ends on an older view
	pubMu     sync.Mutex
	published uint64
}

func newSession(id string, cat *catalog.Index, loader SeriesLoader, log *logger.Logger, now func() time.Time) *Session {
	s := &Session{
		ID:          id,
		catalog:     cat,
		loader:      loader,
		logger:      log.WithSession(id),
		now:         now,
		manager:     selection.NewManager(cat),
		lastSeen:    now(),
		subscribers: make(map[int]func(View)),
	}
	// runs inside commands, which already hold s.mu
	s.manager.OnChange(func([]selection.Selection) {
		s.changed = true
	})
	return s
}

// Subscribe registers fn to receive the view after every change.
// The returned func unsubscribes.
func (s *Session) Subscribe(fn func(View)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// ShareClasses lists the classes of a fund for the second dropdown
func (s *Session) ShareClasses(fundID string) ([]catalog.ShareClass, error) {
	s.touch()
	return s.catalog.ShareClasses(fundID)
}

// Add selects a (fund, class) pair
func (s *Session) Add(fundID, classID string) (selection.Selection, error) {
	defer s.command()()

	sel, err := s.manager.Add(fundID, classID)
	if err != nil {
		s.fail(contracts.OpAdd, err)
	}
	return sel, err
}

// Remove drops a selection tag. Removing the last one hides the table.
func (s *Session) Remove(selectionID string) bool {
	defer s.command()()

	removed := s.manager.Remove(selectionID)
	if removed && s.manager.Len() == 0 {
		s.hideTable()
	}
	return removed
}

// Clear drops every selection and hides the table
func (s *Session) Clear() {
	defer s.command()()

	s.manager.Clear()
	s.hideTable()
}

// RequestHistory builds the comparison table for the current selection.
// On failure the notification is set and the previous table is left alone.
// The series is loaded without holding the session lock; the table is
// built from the selection as it stands once the load returns.
func (s *Session) RequestHistory(ctx context.Context, period series.Period) (*comparison.Table, error) {
	if err := s.requireSelection(); err != nil {
		return nil, err
	}

	idx, loadErr := s.loader.Load(ctx)

	defer s.command()()

	if loadErr != nil {
		s.fail(contracts.OpHistory, loadErr)
		return nil, loadErr
	}

	table, err := comparison.BuildPeriod(s.manager.Snapshot(), idx, period)
	if err != nil {
		s.fail(contracts.OpHistory, err)
		return nil, err
	}

	s.table = table
	s.tableVisible = true
	s.period = period
	s.changed = true
	return table, nil
}

// requireSelection fails the history command when nothing is selected.
// A non-empty selection leaves the session untouched.
func (s *Session) requireSelection() error {
	s.mu.Lock()
	if s.manager.Len() > 0 {
		s.mu.Unlock()
		return nil
	}
	s.begin()
	defer s.end()

	err := contracts.ErrEmptySelection
	s.fail(contracts.OpHistory, err)
	return err
}

// View returns the current render state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Table returns the last built table while it is visible
func (s *Session) Table() (*comparison.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableVisible || s.table == nil {
		return nil, false
	}
	return s.table, true
}

// LastSeen is the time of the last command
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// command locks the session for one command and returns the func that
// ends it. Callers defer the result, so s.mu is released on every path.
func (s *Session) command() func() {
	s.mu.Lock()
	s.begin()
	return s.end
}

// begin must be called with s.mu held
func (s *Session) begin() {
	s.lastSeen = s.now()
	s.changed = false
	if s.notification != "" {
		s.notification = ""
		s.changed = true
	}
}

// end releases s.mu and publishes the view if the command changed anything
func (s *Session) end() {
	if !s.changed {
		s.mu.Unlock()
		return
	}

	s.seq++
	view := s.viewLocked()
	subs := make([]func(View), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.publish(view, subs)
}

// publish hands view to subs unless a newer view was already delivered.
// Subscribers must not run session commands.
func (s *Session) publish(view View, subs []func(View)) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if view.Seq <= s.published {
		return
	}
	s.published = view.Seq

	for _, fn := range subs {
		fn(view)
	}
}

func (s *Session) fail(op contracts.Operation, err error) {
	s.notification = contracts.UserMessage(op, err)
	s.changed = true
	s.logger.WithError(err).WithFields(map[string]interface{}{
		"op":   string(op),
		"kind": contracts.Kind(err),
	}).Warn("Session command failed")
}

func (s *Session) hideTable() {
	if s.tableVisible || s.table != nil {
		s.changed = true
	}
	s.table = nil
	s.tableVisible = false
}

func (s *Session) viewLocked() View {
	snapshot := s.manager.Snapshot()
	v := View{
		SessionID:    s.ID,
		Seq:          s.seq,
		Selections:   snapshot,
		ClearEnabled: len(snapshot) > 0,
		TableVisible: s.tableVisible,
		Period:       s.period,
		Notification: s.notification,
	}
	if s.tableVisible {
		v.Table = s.table
	}
	return v
}
