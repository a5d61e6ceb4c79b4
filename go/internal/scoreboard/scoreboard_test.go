package scoreboard

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestRecordOrdersByScoreDescending(t *testing.T) {
	board := New(5)
	board.Record(Entry{Name: "A", Score: 50, Timestamp: 1})
	board.Record(Entry{Name: "B", Score: 100, Timestamp: 2})
	board.Record(Entry{Name: "C", Score: 75, Timestamp: 3})

	assert.Equal(t, []string{"B", "C", "A"}, names(board.List()))
}

func TestRecordTrimsToMaxEntries(t *testing.T) {
	board := New(2)
	board.Record(Entry{Name: "Low", Score: 30, Timestamp: 1})
	board.Record(Entry{Name: "Mid", Score: 50, Timestamp: 2})
	board.Record(Entry{Name: "High", Score: 100, Timestamp: 3})
	board.Record(Entry{Name: "Lower", Score: 40, Timestamp: 4})

	snapshot := board.List()
	require.Len(t, snapshot, 2)
	assert.Equal(t, []string{"High", "Mid"}, names(snapshot))
}

func TestRecordKeepsEarliestFirstOnTies(t *testing.T) {
	board := New(3)
	board.Record(Entry{Name: "Earlier", Score: 80, Timestamp: 10})
	board.Record(Entry{Name: "Later", Score: 80, Timestamp: 20})
	board.Record(Entry{Name: "Newest", Score: 60, Timestamp: 30})

	assert.Equal(t, []string{"Earlier", "Later", "Newest"}, names(board.List()))
}

func TestListReturnsCopy(t *testing.T) {
	board := New(3)
	board.Record(Entry{Name: "A", Score: 10, Timestamp: 1})

	snapshot := board.List()
	snapshot[0].Name = "mutated"
	assert.Equal(t, "A", board.List()[0].Name)
}

func TestSanitizeEntry(t *testing.T) {
	now := time.UnixMilli(42)

	t.Run("rejects non-positive scores", func(t *testing.T) {
		_, err := SanitizeEntry("A", 0, now)
		assert.ErrorIs(t, err, ErrInvalidScore)
		_, err = SanitizeEntry("A", -3, now)
		assert.ErrorIs(t, err, ErrInvalidScore)
	})

	t.Run("defaults blank names and rounds scores", func(t *testing.T) {
		entry, err := SanitizeEntry("   ", 49.6, now)
		require.NoError(t, err)
		assert.Equal(t, AnonymousName, entry.Name)
		assert.Equal(t, 50, entry.Score)
		assert.Equal(t, int64(42), entry.Timestamp)
	})

	t.Run("caps long names", func(t *testing.T) {
		long := "abcdefghijklmnopqrstuvwxyzabcdefghij"
		entry, err := SanitizeEntry(long, 10, now)
		require.NoError(t, err)
		assert.Len(t, entry.Name, MaxNameLength)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")

	store, err := OpenStore(path)
	require.NoError(t, err)

	board, err := NewWithStore(3, store)
	require.NoError(t, err)
	board.Record(Entry{Name: "A", Score: 50, Timestamp: 1})
	board.Record(Entry{Name: "B", Score: 100, Timestamp: 2})
	require.NoError(t, store.Close())

	// Reopen and confirm the ranking survives.
	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	board, err = NewWithStore(3, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(board.List()))
}
