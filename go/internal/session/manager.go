// Package session binds one connection to zero-or-one room and relays client
// actions into the room registry, stats math and scoreboard.
package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mkessler/typerace/go/internal/event"
	"github.com/mkessler/typerace/go/internal/room"
	"github.com/mkessler/typerace/go/internal/scoreboard"
)

const (
	// DefaultMaxBatchChars rejects keystroke batches at or above this size.
	DefaultMaxBatchChars = 6
	// DefaultMinCharInterval is the fastest believable per-character pace.
	DefaultMinCharInterval = 35 * time.Millisecond
)

// Broadcaster is what sessions need from the connection gateway.
type Broadcaster interface {
	BroadcastToRoom(roomID string, evt event.Event)
	BroadcastToConn(connID string, evt event.Event)
	BroadcastAll(evt event.Event)
	JoinRoom(connID, roomID string)
	LeaveRoom(connID, roomID string)
}

// Config tunes the anti-cheat screen. Zero values fall back to defaults.
type Config struct {
	MaxBatchChars   int
	MinCharInterval time.Duration
}

// Manager owns all live sessions and implements the gateway's message
// handler contract.
type Manager struct {
	rooms       *room.Store
	scores      *scoreboard.Scoreboard
	broadcaster Broadcaster
	clock       clockwork.Clock
	cfg         Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager wires the session layer. The room store and scoreboard are
// injected so tests can swap in their own instances.
func NewManager(rooms *room.Store, scores *scoreboard.Scoreboard, broadcaster Broadcaster, clock clockwork.Clock, cfg Config) *Manager {
	if cfg.MaxBatchChars <= 0 {
		cfg.MaxBatchChars = DefaultMaxBatchChars
	}
	if cfg.MinCharInterval <= 0 {
		cfg.MinCharInterval = DefaultMinCharInterval
	}
	return &Manager{
		rooms:       rooms,
		scores:      scores,
		broadcaster: broadcaster,
		clock:       clock,
		cfg:         cfg,
		sessions:    make(map[string]*Session),
	}
}

// HandleConnect registers a session for a new connection and pushes the
// current scoreboard snapshot so the client need not wait for the next
// update broadcast.
func (m *Manager) HandleConnect(connID, handle string) {
	if handle == "" {
		handle = defaultHandle(connID)
	}
	s := &Session{id: connID, handle: handle, manager: m, state: StateIdle}

	m.mu.Lock()
	m.sessions[connID] = s
	m.mu.Unlock()

	log.Info().Str("player_id", connID).Str("handle", handle).Msg("session opened")
	m.pushScores(connID)
}

// HandleAction routes one inbound client action to its session.
func (m *Manager) HandleAction(connID string, evt event.Event) {
	s := m.session(connID)
	if s == nil {
		return
	}

	switch evt.Type {
	case event.ActionRequestMatch:
		s.JoinQuickMatch()
	case event.ActionKeystroke:
		var payload event.KeystrokePayload
		if err := evt.DecodeData(&payload); err != nil {
			log.Debug().Err(err).Str("player_id", connID).Msg("malformed keystroke payload")
			return
		}
		s.HandleKeystroke(payload.Key, payload.Correct)
	case event.ActionSubmitScore:
		var payload event.SubmitScorePayload
		if err := evt.DecodeData(&payload); err != nil {
			log.Debug().Err(err).Str("player_id", connID).Msg("malformed score payload")
			return
		}
		s.SubmitScore(payload.Name, payload.Score)
	default:
		log.Debug().Str("type", string(evt.Type)).Str("player_id", connID).Msg("unknown action")
	}
}

// HandleDisconnect tears down room membership and drops the session.
func (m *Manager) HandleDisconnect(connID string) {
	s := m.session(connID)
	if s == nil {
		return
	}
	s.Disconnect()

	m.mu.Lock()
	delete(m.sessions, connID)
	m.mu.Unlock()

	log.Info().Str("player_id", connID).Msg("session closed")
}

// BroadcastScores pushes the current scoreboard snapshot to every
// connection. Used by the HTTP submission path as well.
func (m *Manager) BroadcastScores() {
	evt, err := event.New(event.EventScoresUpdate, m.clock.Now(), scoresPayload{Scores: m.scores.List()})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode scores update")
		return
	}
	m.broadcaster.BroadcastAll(evt)
}

// Session returns the live session for a connection, if any.
func (m *Manager) Session(connID string) (*Session, bool) {
	s := m.session(connID)
	return s, s != nil
}

func (m *Manager) session(connID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[connID]
}

func (m *Manager) pushScores(connID string) {
	evt, err := event.New(event.EventScoresUpdate, m.clock.Now(), scoresPayload{Scores: m.scores.List()})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode scores update")
		return
	}
	m.broadcaster.BroadcastToConn(connID, evt)
}

// onCountdownExpired broadcasts the race-start event carrying the passage,
// its fingerprint and the authoritative start timestamp.
func (m *Manager) onCountdownExpired(r *room.Room) {
	r.Mu.RLock()
	payload := event.RaceStartPayload{
		RaceID:             r.ID,
		PassageFingerprint: r.Fingerprint,
		Passage:            r.Passage,
		StartedAt:          r.StartedAt.UnixMilli(),
	}
	r.Mu.RUnlock()

	evt, err := event.New(event.EventRaceStart, m.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.ID).Msg("failed to encode race start")
		return
	}
	m.broadcaster.BroadcastToRoom(r.ID, evt)
}

// broadcastRoomState emits the membership/countdown snapshot of a room.
func (m *Manager) broadcastRoomState(r *room.Room) {
	now := m.clock.Now()

	r.Mu.RLock()
	payload := event.RoomStatePayload{
		RoomID:               r.ID,
		Players:              make([]event.PlayerState, 0, len(r.Players)),
		CountdownMsRemaining: r.CountdownRemaining(now),
		PassageLength:        len(r.Runes()),
		Passage:              r.Passage,
	}
	for _, p := range r.Players {
		payload.Players = append(payload.Players, event.PlayerState{
			ID:       p.ID,
			Handle:   p.Handle,
			Progress: p.Progress,
			Speed:    p.Speed,
			Accuracy: p.Accuracy,
		})
	}
	r.Mu.RUnlock()

	evt, err := event.New(event.EventRoomState, now, payload)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.ID).Msg("failed to encode room state")
		return
	}
	m.broadcaster.BroadcastToRoom(r.ID, evt)
}

// scoresPayload is the scores-update wire shape.
type scoresPayload struct {
	Scores []scoreboard.Entry `json:"scores"`
}

// defaultHandle builds the anonymous-guest label from a connection id.
func defaultHandle(connID string) string {
	short := connID
	if len(short) > 4 {
		short = short[:4]
	}
	return "Guest-" + short
}
