// Package scoreboard keeps the process-wide ledger of best submitted
// results, optionally backed by SQLite.
package scoreboard

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxEntries bounds the ledger size.
	DefaultMaxEntries = 10
	// MaxNameLength caps submitted display names.
	MaxNameLength = 32
	// AnonymousName is used when no usable name was submitted.
	AnonymousName = "Anonymous"
)

// ErrInvalidScore marks submissions with a non-finite or non-positive score.
var ErrInvalidScore = errors.New("invalid score value")

// Entry is one immutable best-score record.
type Entry struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"`
}

// SanitizeEntry validates a raw submission and normalizes it into an Entry.
func SanitizeEntry(name string, score float64, at time.Time) (Entry, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) || score <= 0 {
		return Entry{}, ErrInvalidScore
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = AnonymousName
	}
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}
	return Entry{
		Name:      name,
		Score:     int(math.Round(score)),
		Timestamp: at.UnixMilli(),
	}, nil
}

// Scoreboard is an ordered, size-bounded ledger. Every recorded run is kept
// as an independent entry; there is no dedup by name.
type Scoreboard struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	store      *Store
}

// New returns an in-memory scoreboard bounded to maxEntries.
func New(maxEntries int) *Scoreboard {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Scoreboard{maxEntries: maxEntries}
}

// NewWithStore returns a scoreboard that persists entries through store and
// seeds itself from the previously saved top scores.
func NewWithStore(maxEntries int, store *Store) (*Scoreboard, error) {
	board := New(maxEntries)
	board.store = store
	entries, err := store.Load(board.maxEntries)
	if err != nil {
		return nil, err
	}
	board.entries = entries
	board.sortAndTruncate()
	return board, nil
}

// Record inserts an entry, re-ranks the ledger and returns the resulting
// snapshot. Displaced entries are discarded.
func (b *Scoreboard) Record(entry Entry) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	b.sortAndTruncate()

	if b.store != nil {
		if err := b.store.Insert(entry); err != nil {
			log.Warn().Err(err).Str("name", entry.Name).Msg("failed to persist score entry")
		}
	}
	return b.snapshot()
}

// List returns a copy of the current ranking.
func (b *Scoreboard) List() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// sortAndTruncate ranks by score descending, ties broken by earliest
// submission. Callers hold b.mu.
func (b *Scoreboard) sortAndTruncate() {
	sort.SliceStable(b.entries, func(i, j int) bool {
		if b.entries[i].Score != b.entries[j].Score {
			return b.entries[i].Score > b.entries[j].Score
		}
		return b.entries[i].Timestamp < b.entries[j].Timestamp
	})
	if len(b.entries) > b.maxEntries {
		b.entries = b.entries[:b.maxEntries]
	}
}

func (b *Scoreboard) snapshot() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
