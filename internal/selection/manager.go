package selection

import (
	"fmt"
	"sync"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/contracts"
)

// MaxSelections is the most (fund, class) pairs one manager holds
const MaxSelections = contracts.MaxSelections

// Catalog resolves ids for the manager. *catalog.Index satisfies it.
type Catalog interface {
	FindFund(fundID string) (*catalog.Fund, bool)
	FindShareClass(fundID, classID string) (*catalog.ShareClass, bool)
}

// Key identifies a selection. Comparing keys avoids collisions in the joined ID.
type Key struct {
	FundID  string `json:"fund_id"`
	ClassID string `json:"class_id"`
}

// Selection is one chosen (fund, share class) pair
type Selection struct {
	ID      string `json:"id"`
	FundID  string `json:"fund_id"`
	ClassID string `json:"class_id"`
	Name    string `json:"name"`
}

// Key returns the composite identity of the selection
func (s Selection) Key() Key {
	return Key{FundID: s.FundID, ClassID: s.ClassID}
}

// SelectionID joins fund and class ids the way selection tags are addressed
func SelectionID(fundID, classID string) string {
	return fundID + "-" + classID
}

// Observer receives a snapshot after each successful mutation.
// It runs while the manager is locked and must not call back into it.
type Observer func(snapshot []Selection)

// Manager holds an ordered, bounded, duplicate-free selection set
// ⭐ SSOT: 선택 상태 변경은 Manager를 통해서만
type Manager struct {
	catalog Catalog

	mu        sync.Mutex
	items     []Selection
	observers []Observer
}

// NewManager creates an empty manager resolving ids against cat
func NewManager(cat Catalog) *Manager {
	return &Manager{
		catalog: cat,
		items:   make([]Selection, 0, MaxSelections),
	}
}

// OnChange registers an observer
func (m *Manager) OnChange(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Add selects a (fund, class) pair.
// Checks run resolve, duplicate, then limit; nothing changes on error.
func (m *Manager) Add(fundID, classID string) (Selection, error) {
	if fundID == "" || classID == "" {
		return Selection{}, fmt.Errorf("fund and share class are both required: %w", contracts.ErrNotFound)
	}

	fund, ok := m.catalog.FindFund(fundID)
	if !ok {
		return Selection{}, fmt.Errorf("fund %q: %w", fundID, contracts.ErrNotFound)
	}
	class, ok := m.catalog.FindShareClass(fundID, classID)
	if !ok {
		return Selection{}, fmt.Errorf("share class %q of fund %q: %w", classID, fundID, contracts.ErrNotFound)
	}

	sel := Selection{
		ID:      SelectionID(fund.ID, class.ID),
		FundID:  fund.ID,
		ClassID: class.ID,
		Name:    fund.Name + " " + class.Label(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing.Key() == sel.Key() {
			return Selection{}, fmt.Errorf("%s: %w", sel.Name, contracts.ErrAlreadySelected)
		}
	}
	if len(m.items) >= MaxSelections {
		return Selection{}, fmt.Errorf("cannot add %s, %d already selected: %w", sel.Name, len(m.items), contracts.ErrLimitExceeded)
	}

	m.items = append(m.items, sel)
	m.notifyLocked()
	return sel, nil
}

// Remove drops every selection addressed by id and reports whether any was removed
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	removed := false
	for _, s := range m.items {
		if s.ID == id {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	m.items = kept

	if removed {
		m.notifyLocked()
	}
	return removed
}

// RemoveKey drops the selection with the exact composite key
func (m *Manager) RemoveKey(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.items {
		if s.Key() == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.notifyLocked()
			return true
		}
	}
	return false
}

// Clear empties the selection and always notifies
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = m.items[:0]
	m.notifyLocked()
}

// Snapshot returns a copy of the selections in insertion order
func (m *Manager) Snapshot() []Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Len returns the current selection count
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Manager) snapshotLocked() []Selection {
	out := make([]Selection, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) notifyLocked() {
	if len(m.observers) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, fn := range m.observers {
		fn(snap)
	}
}
