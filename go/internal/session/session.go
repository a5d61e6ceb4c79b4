package session

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/mkessler/typerace/go/internal/event"
	"github.com/mkessler/typerace/go/internal/room"
	"github.com/mkessler/typerace/go/internal/scoreboard"
	"github.com/mkessler/typerace/go/internal/stats"
)

// State tracks where a session sits in its lifecycle. Racing is entered
// implicitly when the room's countdown expires.
type State string

const (
	StateIdle     State = "idle"
	StateInRoom   State = "in_room"
	StateFinished State = "finished"
)

// Session is the per-connection state machine. All methods run on the
// owning connection's read goroutine, so its fields need no lock; shared
// room state is guarded by the room's own mutex.
type Session struct {
	id      string
	handle  string
	manager *Manager

	state State
	room  *room.Room

	// Keystroke totals, reset on every room join.
	correct int
	total   int

	lastPassage    string
	lastAcceptedAt time.Time
	completions    int
}

// ID returns the session's connection id.
func (s *Session) ID() string { return s.id }

// Handle returns the display handle.
func (s *Session) Handle() string { return s.handle }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Completions reports how many passages this session has finished.
func (s *Session) Completions() int { return s.completions }

// Room returns the session's current room, if any.
func (s *Session) Room() *room.Room { return s.room }

// JoinQuickMatch routes the session into a joinable room, creating one when
// needed, and arms the room countdown. A session already in a room leaves it
// first, so a connection is a member of at most one room at a time.
func (s *Session) JoinQuickMatch() {
	m := s.manager

	if s.room != nil {
		s.leaveRoom()
	}

	s.correct, s.total = 0, 0
	s.lastAcceptedAt = time.Time{}

	r, _ := m.rooms.Join(s.lastPassage, s.id, s.handle)
	s.room = r
	s.state = StateInRoom
	s.lastPassage = r.Passage

	m.broadcaster.JoinRoom(s.id, r.ID)
	m.broadcastRoomState(r)
	m.rooms.ScheduleCountdown(r, m.onCountdownExpired)
}

// HandleKeystroke applies one batch of typed characters. The client's
// correct flag feeds accuracy accounting only; progress advances solely when
// the characters match the canonical passage at the player's index.
func (s *Session) HandleKeystroke(key string, correct bool) {
	m := s.manager
	r := s.room
	if r == nil || s.state == StateFinished {
		return
	}
	batch := utf8.RuneCountInString(key)
	if batch == 0 {
		return
	}
	now := m.clock.Now()

	r.Mu.Lock()
	player, ok := r.Players[s.id]
	if !ok || !r.Started() {
		r.Mu.Unlock()
		return
	}

	if reason, suspicious := s.screenBatch(batch, now); suspicious {
		r.Mu.Unlock()
		s.warn(reason)
		return
	}
	s.lastAcceptedAt = now

	runes := r.Runes()
	s.total += batch
	if correct {
		s.correct += batch
	}
	for _, ch := range key {
		if correct && player.Progress < len(runes) && runes[player.Progress] == ch {
			player.Progress++
		}
	}

	player.Speed = stats.ComputeSpeed(player.Progress, r.StartedAt, now)
	player.Accuracy = stats.ComputeAccuracy(s.correct, s.total)

	progress := event.RaceProgressPayload{
		PlayerID:      s.id,
		ProgressChars: player.Progress,
		Speed:         player.Speed,
		Accuracy:      player.Accuracy,
	}

	finished := player.Progress >= len(runes)
	var leaderboard []event.LeaderboardEntry
	if finished && !r.Finished {
		r.Finished = true
		leaderboard = buildLeaderboard(r, now)
	}
	r.Mu.Unlock()

	if evt, err := event.New(event.EventRaceProgress, now, progress); err == nil {
		m.broadcaster.BroadcastToRoom(r.ID, evt)
	} else {
		log.Error().Err(err).Str("room_id", r.ID).Msg("failed to encode progress")
	}

	if finished {
		s.state = StateFinished
		s.completions++
	}
	if leaderboard != nil {
		if evt, err := event.New(event.EventRaceFinish, now, event.RaceFinishPayload{Leaderboard: leaderboard}); err == nil {
			m.broadcaster.BroadcastToRoom(r.ID, evt)
		} else {
			log.Error().Err(err).Str("room_id", r.ID).Msg("failed to encode finish")
		}
		log.Info().
			Str("room_id", r.ID).
			Str("player_id", s.id).
			Int("speed", progress.Speed).
			Msg("race finished")
	}
}

// SubmitScore validates a best-score submission and broadcasts the new
// top-N to every connection. Invalid scores are discarded silently; the
// websocket path carries no response channel.
func (s *Session) SubmitScore(name string, score float64) {
	m := s.manager

	entry, err := scoreboard.SanitizeEntry(name, score, m.clock.Now())
	if err != nil {
		log.Debug().
			Str("player_id", s.id).
			Float64("score", score).
			Msg("discarding invalid score submission")
		return
	}
	m.scores.Record(entry)
	log.Info().
		Str("name", entry.Name).
		Int("score", entry.Score).
		Int("completions", s.completions).
		Msg("score recorded")
	m.BroadcastScores()
}

// Disconnect performs the same implicit leave as the start of a quick
// match, broadcasting the room's updated state to remaining members.
func (s *Session) Disconnect() {
	if s.room != nil {
		s.leaveRoom()
	}
}

// screenBatch applies the anti-cheat policy: oversized batches or a typing
// rate faster than the minimum per-character interval are rejected. The
// rejection is local and non-fatal; the next batch is evaluated fresh.
func (s *Session) screenBatch(batch int, now time.Time) (string, bool) {
	cfg := s.manager.cfg
	if batch >= cfg.MaxBatchChars {
		return "batch too large", true
	}
	if !s.lastAcceptedAt.IsZero() {
		floor := time.Duration(batch) * cfg.MinCharInterval
		if now.Sub(s.lastAcceptedAt) < floor {
			return "typing rate too fast", true
		}
	}
	return "", false
}

// warn surfaces a transient anti-cheat rejection to this connection only.
func (s *Session) warn(reason string) {
	m := s.manager
	evt, err := event.New(event.EventRaceWarning, m.clock.Now(), event.RaceWarningPayload{Reason: reason})
	if err != nil {
		return
	}
	m.broadcaster.BroadcastToConn(s.id, evt)
	log.Warn().Str("player_id", s.id).Str("reason", reason).Msg("rejected keystroke batch")
}

func (s *Session) leaveRoom() {
	m := s.manager
	r := s.room

	m.rooms.RemovePlayer(r, s.id)
	m.broadcaster.LeaveRoom(s.id, r.ID)

	r.Mu.RLock()
	remaining := len(r.Players)
	r.Mu.RUnlock()
	if remaining > 0 {
		m.broadcastRoomState(r)
	}

	s.room = nil
	s.state = StateIdle
}

// buildLeaderboard ranks all room players by speed descending, annotated
// with elapsed time since start. Callers hold r.Mu.
func buildLeaderboard(r *room.Room, now time.Time) []event.LeaderboardEntry {
	entries := make([]event.LeaderboardEntry, 0, len(r.Players))
	elapsed := now.Sub(r.StartedAt).Milliseconds()
	for _, p := range r.Players {
		entries = append(entries, event.LeaderboardEntry{
			PlayerID:   p.ID,
			Speed:      p.Speed,
			Accuracy:   p.Accuracy,
			FinishedMs: elapsed,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Speed > entries[j].Speed
	})
	return entries
}
