package selection

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/contracts"
)

const testCatalog = `{
  "Funds": [
    {"FundId": "A", "FundName": "Alpha", "ShareClasses": [
      {"FundClassId": "X", "ClassName": "I"},
      {"FundClassId": "Y", "ClassName": "R6"},
      {"FundClassId": "X-1", "ClassName": "Z"}
    ]},
    {"FundId": "B", "FundName": "Beta", "ShareClasses": [
      {"FundClassId": "Z", "ClassName": "A"},
      {"FundClassId": "X", "ClassName": "C"}
    ]},
    {"FundId": "C", "FundName": "Gamma", "ShareClasses": [
      {"FundClassId": "1", "ClassName": "I"},
      {"FundClassId": "2", "ClassName": "Y"}
    ]},
    {"FundId": "A-X", "FundName": "Hyphen", "ShareClasses": [
      {"FundClassId": "1", "ClassName": "I"}
    ]}
  ]
}`

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	idx, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return NewManager(idx)
}

func TestAdd(t *testing.T) {
	m := newTestManager(t)

	sel, err := m.Add("A", "X")
	require.NoError(t, err)
	assert.Equal(t, Selection{ID: "A-X", FundID: "A", ClassID: "X", Name: "Alpha Class I"}, sel)

	// same class id under a different fund is a different selection
	sel, err = m.Add("B", "X")
	require.NoError(t, err)
	assert.Equal(t, "Beta Class C", sel.Name)

	assert.Equal(t, 2, m.Len())
}

func TestAddErrors(t *testing.T) {
	tests := []struct {
		name    string
		fundID  string
		classID string
		wantErr error
	}{
		{"empty fund", "", "X", contracts.ErrNotFound},
		{"empty class", "A", "", contracts.ErrNotFound},
		{"unknown fund", "Q", "X", contracts.ErrNotFound},
		{"class of another fund", "A", "Z", contracts.ErrNotFound},
		{"duplicate", "A", "X", contracts.ErrAlreadySelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			_, err := m.Add("A", "X")
			require.NoError(t, err)

			before := m.Snapshot()
			_, err = m.Add(tt.fundID, tt.classID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, m.Snapshot())
		})
	}
}

func TestAddLimit(t *testing.T) {
	m := newTestManager(t)

	pairs := [][2]string{{"A", "X"}, {"A", "Y"}, {"B", "Z"}, {"B", "X"}, {"C", "1"}}
	for _, p := range pairs {
		_, err := m.Add(p[0], p[1])
		require.NoError(t, err)
	}
	require.Equal(t, MaxSelections, m.Len())

	_, err := m.Add("C", "2")
	assert.ErrorIs(t, err, contracts.ErrLimitExceeded)
	assert.Equal(t, MaxSelections, m.Len())

	// duplicate at the limit reports the duplicate
	_, err = m.Add("A", "X")
	assert.ErrorIs(t, err, contracts.ErrAlreadySelected)

	// unknown at the limit reports not found
	_, err = m.Add("Q", "X")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRemove(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Add("A", "X")
	_, _ = m.Add("B", "Z")

	assert.True(t, m.Remove("A-X"))
	assert.False(t, m.Remove("A-X"))
	assert.False(t, m.Remove("nope"))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "B-Z", snap[0].ID)
}

func TestCollidingIDs(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Add("A-X", "1")
	require.NoError(t, err)
	sel, err := m.Add("A", "X-1")
	require.NoError(t, err, "distinct keys sharing an id are both selectable")
	assert.Equal(t, "A-X-1", sel.ID)
	assert.Len(t, m.Snapshot(), 2)

	assert.True(t, m.RemoveKey(Key{FundID: "A", ClassID: "X-1"}))
	assert.False(t, m.RemoveKey(Key{FundID: "A", ClassID: "X-1"}))
	assert.Equal(t, []Key{{FundID: "A-X", ClassID: "1"}}, keys(m.Snapshot()))

	// removal by id drops every selection addressed by it
	_, _ = m.Add("A", "X-1")
	assert.True(t, m.Remove("A-X-1"))
	assert.Empty(t, m.Snapshot())
}

func TestAddRemoveIdentity(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Add("A", "Y")
	_, _ = m.Add("C", "2")
	before := m.Snapshot()

	sel, err := m.Add("B", "Z")
	require.NoError(t, err)
	require.True(t, m.Remove(sel.ID))

	assert.Equal(t, before, m.Snapshot())
}

func TestClear(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Add("A", "X")

	calls := 0
	m.OnChange(func([]Selection) { calls++ })

	m.Clear()
	assert.Empty(t, m.Snapshot())
	m.Clear()
	assert.Equal(t, 2, calls)
}

func TestOnChange(t *testing.T) {
	m := newTestManager(t)

	var got [][]string
	m.OnChange(func(snap []Selection) { got = append(got, ids(snap)) })

	_, _ = m.Add("A", "X")
	_, _ = m.Add("A", "X") // rejected, no notification
	_, _ = m.Add("B", "Z")
	m.Remove("missing") // no-op, no notification
	m.Remove("A-X")

	assert.Equal(t, [][]string{
		{"A-X"},
		{"A-X", "B-Z"},
		{"B-Z"},
	}, got)
}

func TestSnapshotIsCopy(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Add("A", "X")

	snap := m.Snapshot()
	snap[0].Name = "changed"
	assert.Equal(t, "Alpha Class I", m.Snapshot()[0].Name)
}

func TestRandomOperations(t *testing.T) {
	m := newTestManager(t)
	rng := rand.New(rand.NewSource(42))

	pairs := [][2]string{
		{"A", "X"}, {"A", "Y"}, {"B", "Z"}, {"B", "X"},
		{"C", "1"}, {"C", "2"}, {"A-X", "1"}, {"A", "X-1"}, {"Q", "Q"},
	}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(10) {
		case 0:
			m.Clear()
		case 1, 2, 3:
			p := pairs[rng.Intn(len(pairs))]
			m.Remove(SelectionID(p[0], p[1]))
		default:
			p := pairs[rng.Intn(len(pairs))]
			_, _ = m.Add(p[0], p[1])
		}

		snap := m.Snapshot()
		require.LessOrEqual(t, len(snap), MaxSelections, "step %d", i)

		seen := make(map[Key]bool)
		for _, s := range snap {
			require.False(t, seen[s.Key()], "step %d: duplicate %v", i, s.Key())
			seen[s.Key()] = true
		}
	}
}

func ids(snap []Selection) []string {
	out := make([]string, len(snap))
	for i, s := range snap {
		out[i] = s.ID
	}
	return out
}

func keys(snap []Selection) []Key {
	out := make([]Key, len(snap))
	for i, s := range snap {
		out[i] = s.Key()
	}
	return out
}

func ExampleManager() {
	idx, _ := catalog.Parse([]byte(testCatalog))
	m := NewManager(idx)

	_, _ = m.Add("A", "X")
	_, err := m.Add("A", "X")
	fmt.Println(err)
	fmt.Println(ids(m.Snapshot()))
	// Output:
	// Alpha Class I: already selected
	// [A-X]
}
