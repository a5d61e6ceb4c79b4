// Package room owns room lifecycle: creation, matchmaking, membership and
// countdown scheduling.
package room

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mkessler/typerace/go/internal/passage"
	"github.com/mkessler/typerace/go/internal/stats"
)

const (
	// DefaultCountdown is the delay between a room arming and the race start.
	DefaultCountdown = 5 * time.Second
	// DefaultMaxPlayers caps room membership.
	DefaultMaxPlayers = 8
	// roomIDLength is the size of the short room token.
	roomIDLength = 6
)

// Options tunes a Store. Zero values fall back to defaults.
type Options struct {
	Countdown  time.Duration
	MaxPlayers int
	Passages   []string
}

// Store is the process-wide room registry.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	clock      clockwork.Clock
	countdown  time.Duration
	maxPlayers int
	passages   []string
}

// NewStore creates a registry driven by the given clock. Tests pass a
// clockwork fake clock for deterministic countdowns.
func NewStore(clock clockwork.Clock, opts Options) *Store {
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	if len(opts.Passages) == 0 {
		opts.Passages = passage.Pool
	}
	return &Store{
		rooms:      make(map[string]*Room),
		clock:      clock,
		countdown:  opts.Countdown,
		maxPlayers: opts.MaxPlayers,
		passages:   opts.Passages,
	}
}

// Join places a player into a room that has not started and has capacity,
// creating one when none exists. The started and capacity checks and the
// insert happen under one acquisition of the room lock, so concurrent joins
// can neither push membership past the cap nor land in a started race. The
// exclude passage steers the picker away from the text the caller last raced.
func (s *Store) Join(excludePassage, id, handle string) (*Room, *Player) {
	for {
		s.mu.RLock()
		candidates := make([]*Room, 0, len(s.rooms))
		for _, r := range s.rooms {
			candidates = append(candidates, r)
		}
		s.mu.RUnlock()

		for _, r := range candidates {
			if p, ok := s.tryInsert(r, id, handle); ok {
				return r, p
			}
		}

		// A fresh room is registered before the insert, so another join can
		// fill or start it first. Retry from the top when that happens.
		r := s.CreateRoom(excludePassage)
		if p, ok := s.tryInsert(r, id, handle); ok {
			return r, p
		}
	}
}

// tryInsert re-checks joinability and inserts while holding the room lock.
func (s *Store) tryInsert(r *Room, id, handle string) (*Player, bool) {
	r.Mu.Lock()
	if r.Started() || len(r.Players) >= s.maxPlayers {
		r.Mu.Unlock()
		return nil, false
	}
	p := &Player{ID: id, Handle: handle, Progress: 0, Speed: 0, Accuracy: 100}
	r.Players[id] = p
	count := len(r.Players)
	r.Mu.Unlock()

	log.Debug().
		Str("room_id", r.ID).
		Str("player_id", id).
		Int("players", count).
		Msg("player joined room")
	return p, true
}

// CreateRoom allocates a room with a fresh short token and a passage drawn
// from the pool.
func (s *Store) CreateRoom(excludePassage string) *Room {
	text := passage.PickFrom(s.passages, excludePassage)
	r := &Room{
		Passage:     text,
		Fingerprint: stats.Fingerprint(text),
		Players:     make(map[string]*Player),
		runes:       []rune(text),
	}

	s.mu.Lock()
	for {
		id := newRoomID()
		if _, taken := s.rooms[id]; taken {
			continue
		}
		r.ID = id
		s.rooms[id] = r
		break
	}
	s.mu.Unlock()

	log.Info().Str("room_id", r.ID).Int("passage_len", len(text)).Msg("room created")
	return r
}

// RemovePlayer removes the player and reclaims the room once empty. It
// reports whether a removal happened.
func (s *Store) RemovePlayer(r *Room, id string) bool {
	if r == nil {
		return false
	}

	r.Mu.Lock()
	_, removed := r.Players[id]
	delete(r.Players, id)
	empty := len(r.Players) == 0
	r.Mu.Unlock()

	if empty {
		s.mu.Lock()
		delete(s.rooms, r.ID)
		s.mu.Unlock()
		log.Info().Str("room_id", r.ID).Msg("empty room destroyed")
	}
	return removed
}

// ScheduleCountdown arms the one-shot race-start timer. A room with a
// countdown already set is a no-op. The timer is room-scoped: once armed it
// fires even if the triggering player disconnects, sets the start timestamp
// and invokes onExpire exactly once.
func (s *Store) ScheduleCountdown(r *Room, onExpire func(*Room)) {
	r.Mu.Lock()
	if !r.CountdownAt.IsZero() {
		r.Mu.Unlock()
		return
	}
	r.CountdownAt = s.clock.Now().Add(s.countdown)
	r.Mu.Unlock()

	timer := s.clock.NewTimer(s.countdown)
	go func() {
		<-timer.Chan()
		firedAt := s.clock.Now()

		r.Mu.Lock()
		if r.StartedAt.IsZero() {
			r.StartedAt = firedAt
		}
		r.Mu.Unlock()

		log.Info().Str("room_id", r.ID).Time("started_at", firedAt).Msg("race started")
		onExpire(r)
	}()

	log.Debug().
		Str("room_id", r.ID).
		Dur("countdown", s.countdown).
		Msg("countdown armed")
}

// Len reports the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Room looks up a room by id.
func (s *Store) Room(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// newRoomID derives a short random token from fresh UUID bytes.
func newRoomID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:roomIDLength]
}
