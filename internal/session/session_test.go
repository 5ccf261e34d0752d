package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/contracts"
	"github.com/wonny/fundcompare/backend/internal/selection"
	"github.com/wonny/fundcompare/backend/internal/series"
	"github.com/wonny/fundcompare/backend/pkg/logger"
)

const testCatalog = `{"Funds": [
  {"FundId": "A", "FundName": "Alpha", "ShareClasses": [{"FundClassId": "X", "ClassName": "I"}, {"FundClassId": "Y", "ClassName": "R6"}]},
  {"FundId": "B", "FundName": "Beta", "ShareClasses": [{"FundClassId": "Z", "ClassName": "A"}]},
  {"FundId": "C", "FundName": "Gamma", "ShareClasses": [{"FundClassId": "1", "ClassName": "I"}, {"FundClassId": "2", "ClassName": "Y"}]}
]}`

const testSeries = `{"data": [
  {"AsOfDateStr": "1/31/2024", "AsOfDateFormatted": "2024-01-31", "Returns": [{"FundClassId": "X", "Return": 1.234}]},
  {"AsOfDateStr": "2/29/2024", "AsOfDateFormatted": "2024-02-29", "Returns": [{"FundClassId": "Z", "Return": 4.5}]}
]}`

type stubLoader struct {
	mu    sync.Mutex
	idx   *series.Index
	err   error
	calls int
}

func (l *stubLoader) Load(context.Context) (*series.Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.idx, nil
}

func newTestStore(t *testing.T) (*Store, *stubLoader) {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	idx, err := series.Parse([]byte(testSeries))
	require.NoError(t, err)

	loader := &stubLoader{idx: idx}
	return NewStore(cat, loader, logger.Nop()), loader
}

func TestShareClasses(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	classes, err := s.ShareClasses("A")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "Class I", classes[0].Label())

	_, err = s.ShareClasses("nope")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestAddAndView(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	v := s.View()
	assert.False(t, v.ClearEnabled)
	assert.False(t, v.TableVisible)
	assert.Empty(t, v.Selections)

	_, err := s.Add("A", "X")
	require.NoError(t, err)

	v = s.View()
	assert.True(t, v.ClearEnabled)
	require.Len(t, v.Selections, 1)
	assert.Equal(t, "Alpha Class I", v.Selections[0].Name)
	assert.Empty(t, v.Notification)
}

func TestAddNotifications(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	_, err := s.Add("A", "")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
	assert.Equal(t, "Please select both a fund and a share class", s.View().Notification)

	_, _ = s.Add("A", "X")
	assert.Empty(t, s.View().Notification, "successful command clears the notification")

	_, err = s.Add("A", "X")
	assert.ErrorIs(t, err, contracts.ErrAlreadySelected)
	assert.Equal(t, "This fund and share class combination is already selected", s.View().Notification)

	for _, p := range [][2]string{{"A", "Y"}, {"B", "Z"}, {"C", "1"}, {"C", "2"}} {
		_, err := s.Add(p[0], p[1])
		require.NoError(t, err)
	}
	_, err = s.Add("B", "Q")
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	_, err = s.Add("B", "Z")
	assert.ErrorIs(t, err, contracts.ErrAlreadySelected)

	s.Remove("B-Z")
	_, _ = s.Add("B", "Z")
	s.Remove("A-X")
	_, _ = s.Add("A", "X")
	assert.Len(t, s.View().Selections, contracts.MaxSelections)
}

func TestRequestHistory(t *testing.T) {
	st, loader := newTestStore(t)
	s := st.New()

	_, err := s.RequestHistory(context.Background(), series.PeriodAll)
	assert.ErrorIs(t, err, contracts.ErrEmptySelection)
	assert.Equal(t, "Please select at least one fund to view history", s.View().Notification)
	assert.Equal(t, 0, loader.calls, "empty selection never loads the series")

	_, _ = s.Add("A", "X")
	_, _ = s.Add("B", "Z")

	table, err := s.RequestHistory(context.Background(), series.PeriodAll)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	v := s.View()
	assert.True(t, v.TableVisible)
	assert.Same(t, table, v.Table)
	assert.Empty(t, v.Notification)
}

func TestRequestHistoryFailureKeepsState(t *testing.T) {
	st, loader := newTestStore(t)
	s := st.New()
	_, _ = s.Add("A", "X")

	table, err := s.RequestHistory(context.Background(), series.PeriodAll)
	require.NoError(t, err)

	loader.err = &contracts.FetchError{Location: "data.json", Err: errors.New("HTTP error! status: 500")}
	_, _ = s.Add("B", "Z")

	_, err = s.RequestHistory(context.Background(), series.PeriodAll)
	assert.ErrorIs(t, err, contracts.ErrFetchFailure)

	v := s.View()
	assert.Equal(t, "Failed to load historical data. Please try again later.", v.Notification)
	assert.Len(t, v.Selections, 2)
	assert.True(t, v.TableVisible)
	assert.Same(t, table, v.Table)
}

func TestRemoveLastHidesTable(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()
	_, _ = s.Add("A", "X")
	_, _ = s.Add("B", "Z")
	_, err := s.RequestHistory(context.Background(), series.PeriodAll)
	require.NoError(t, err)

	assert.True(t, s.Remove("A-X"))
	assert.True(t, s.View().TableVisible, "table stays while selections remain")
	assert.False(t, s.Remove("A-X"))

	assert.True(t, s.Remove("B-Z"))
	v := s.View()
	assert.False(t, v.TableVisible)
	assert.Nil(t, v.Table)
	assert.False(t, v.ClearEnabled)

	_, ok := s.Table()
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()
	_, _ = s.Add("A", "X")
	_, err := s.RequestHistory(context.Background(), series.PeriodYearToDate)
	require.NoError(t, err)
	assert.Equal(t, series.PeriodYearToDate, s.View().Period)

	s.Clear()
	v := s.View()
	assert.Empty(t, v.Selections)
	assert.False(t, v.TableVisible)
	assert.False(t, v.ClearEnabled)
}

func TestSubscribe(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	var views []View
	unsubscribe := s.Subscribe(func(v View) { views = append(views, v) })

	_, _ = s.Add("A", "X")
	s.Remove("missing") // nothing changed
	_, _ = s.Add("A", "X")
	_, _ = s.RequestHistory(context.Background(), series.PeriodAll)
	s.Clear()

	require.Len(t, views, 4)
	assert.Len(t, views[0].Selections, 1)
	assert.NotEmpty(t, views[1].Notification)
	assert.True(t, views[2].TableVisible)
	assert.False(t, views[3].TableVisible)

	unsubscribe()
	_, _ = s.Add("B", "Z")
	assert.Len(t, views, 4)
}

func TestSubscriberMayReadView(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	var got []int
	s.Subscribe(func(View) { got = append(got, len(s.View().Selections)) })

	_, _ = s.Add("A", "X")
	_, _ = s.Add("B", "Z")
	assert.Equal(t, []int{1, 2}, got)
}

func TestStore(t *testing.T) {
	st, _ := newTestStore(t)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	idle := st.New()
	clock = clock.Add(90 * time.Minute)
	active := st.New()

	assert.NotEqual(t, idle.ID, active.ID)
	assert.Equal(t, 2, st.Len())

	got, ok := st.Get(active.ID)
	require.True(t, ok)
	assert.Same(t, active, got)

	clock = clock.Add(45 * time.Minute)
	assert.Equal(t, 1, st.Reap(2*time.Hour))

	_, ok = st.Get(idle.ID)
	assert.False(t, ok)
	_, ok = st.Get(active.ID)
	assert.True(t, ok)

	assert.True(t, st.Delete(active.ID))
	assert.False(t, st.Delete(active.ID))
	assert.Equal(t, 0, st.Len())
}

func TestConcurrentCommands(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	pairs := [][2]string{{"A", "X"}, {"A", "Y"}, {"B", "Z"}, {"C", "1"}, {"C", "2"}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := pairs[i%len(pairs)]
			_, _ = s.Add(p[0], p[1])
			if i%7 == 0 {
				s.Remove(p[0] + "-" + p[1])
			}
			_, _ = s.RequestHistory(context.Background(), series.PeriodAll)
		}(i)
	}
	wg.Wait()

	v := s.View()
	assert.LessOrEqual(t, len(v.Selections), contracts.MaxSelections)
	if v.Table != nil {
		for _, row := range v.Table.Rows {
			assert.Len(t, row.Cells, len(v.Table.Columns))
		}
	}
}

// waitFor fails the test when fn does not return within a second
func waitFor(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("%s blocked", what)
	}
}

func TestPanicInCommandReleasesSession(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	s.manager.OnChange(func(sel []selection.Selection) {
		if len(sel) == 1 {
			panic("observer failed")
		}
	})

	assert.Panics(t, func() { _, _ = s.Add("A", "X") })

	waitFor(t, "View", func() { _ = s.View() })
	waitFor(t, "Reap", func() { st.Reap(time.Hour) })
	waitFor(t, "Get", func() {
		_, ok := st.Get(s.ID)
		assert.True(t, ok)
	})

	waitFor(t, "Add", func() {
		_, err := s.Add("B", "Z")
		assert.NoError(t, err)
	})
	assert.Len(t, s.View().Selections, 2)
}

type blockingLoader struct {
	idx     *series.Index
	entered chan struct{}
	release chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context) (*series.Index, error) {
	close(l.entered)
	select {
	case <-l.release:
		return l.idx, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSlowLoadDoesNotBlockSession(t *testing.T) {
	st, stub := newTestStore(t)
	loader := &blockingLoader{idx: stub.idx, entered: make(chan struct{}), release: make(chan struct{})}
	st.loader = loader

	s := st.New()
	_, err := s.Add("A", "X")
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := s.RequestHistory(context.Background(), series.PeriodAll)
		result <- err
	}()
	<-loader.entered

	waitFor(t, "View", func() { _ = s.View() })
	waitFor(t, "Reap", func() { assert.Equal(t, 0, st.Reap(time.Hour)) })
	waitFor(t, "New", func() { _ = st.New() })
	waitFor(t, "Add", func() {
		_, err := s.Add("B", "Z")
		assert.NoError(t, err)
	})

	close(loader.release)
	require.NoError(t, <-result)

	v := s.View()
	require.True(t, v.TableVisible)
	assert.Len(t, v.Table.Columns, 2, "table is built from the selection current after the load")
}

func TestSubscriberEndsOnLatestView(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var delivered []View
	first := true
	s.Subscribe(func(v View) {
		mu.Lock()
		wait := first
		first = false
		mu.Unlock()
		if wait {
			close(entered)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, v)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Add("A", "X")
	}()
	<-entered

	go func() {
		defer wg.Done()
		_, _ = s.Add("B", "Z")
	}()
	require.Eventually(t, func() bool { return s.View().Seq == 2 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, delivered)
	last := delivered[len(delivered)-1]
	assert.Len(t, last.Selections, 2)
	assert.Equal(t, s.View().Seq, last.Seq)
	for i := 1; i < len(delivered); i++ {
		assert.Greater(t, delivered[i].Seq, delivered[i-1].Seq)
	}
}

func TestViewSeq(t *testing.T) {
	st, _ := newTestStore(t)
	s := st.New()
	assert.Equal(t, uint64(0), s.View().Seq)

	_, _ = s.Add("A", "X")
	assert.Equal(t, uint64(1), s.View().Seq)

	s.Remove("missing")
	assert.Equal(t, uint64(1), s.View().Seq, "no change, no new view")

	_, _ = s.Add("A", "X")
	assert.Equal(t, uint64(2), s.View().Seq)
}
