package room

import (
	"sync"
	"time"
)

// Player is the per-room record for one connected racer. It is mutated only
// by the owning session and read by broadcast serialization.
type Player struct {
	ID       string
	Handle   string
	Progress int
	Speed    int
	Accuracy int
}

// Room groups players racing the same passage. Callers coordinate access
// through Mu; the store only takes its own lock for registry membership.
type Room struct {
	ID          string
	Passage     string
	Fingerprint string
	Players     map[string]*Player
	CountdownAt time.Time
	StartedAt   time.Time
	Finished    bool

	Mu sync.RWMutex

	runes []rune
}

// Runes returns the passage as runes for index-wise comparison.
func (r *Room) Runes() []rune {
	return r.runes
}

// Started reports whether the race is underway. Callers hold Mu.
func (r *Room) Started() bool {
	return !r.StartedAt.IsZero()
}

// CountdownRemaining returns the milliseconds until race start, or nil when
// no countdown is armed. Callers hold Mu.
func (r *Room) CountdownRemaining(now time.Time) *int64 {
	if r.CountdownAt.IsZero() {
		return nil
	}
	ms := r.CountdownAt.Sub(now).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return &ms
}
