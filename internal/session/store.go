package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

// Store owns the live sessions
// ⭐ SSOT: 세션 생성/조회/만료는 Store에서만
type Store struct {
	catalog *catalog.Index
	loader  SeriesLoader
	logger  *logger.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions share cat and loader
func NewStore(cat *catalog.Index, loader SeriesLoader, log *logger.Logger) *Store {
	return &Store{
		catalog:  cat,
		loader:   loader,
		logger:   log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// New opens a session with an empty selection
func (st *Store) New() *Session {
	s := newSession(uuid.NewString(), st.catalog, st.loader, st.logger, st.now)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.logger.WithSession(s.ID).Debug("Session opened")
	return s
}

// Get looks up a session by id
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete closes a session
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Reap closes sessions idle for longer than idle and returns how many.
// Session clocks are read without the store lock held.
func (st *Store) Reap(idle time.Duration) int {
	cutoff := st.now().Add(-idle)

	st.mu.RLock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.RUnlock()

	var expired []*Session
	for _, s := range candidates {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
		}
	}
	if len(expired) == 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	reaped := 0
	for _, s := range expired {
		if cur, ok := st.sessions[s.ID]; ok && cur == s {
			delete(st.sessions, s.ID)
			reaped++
		}
	}
	return reaped
}
