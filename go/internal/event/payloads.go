package event

// KeystrokePayload carries one batch of typed characters. Key holds the
// newly typed characters and Correct is the client's own verdict; progress
// is still re-verified server side.
type KeystrokePayload struct {
	Key     string `json:"key"`
	Correct bool   `json:"correct"`
}

// SubmitScorePayload carries a best-score submission.
type SubmitScorePayload struct {
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
}

// PlayerState is the broadcast view of one player in a room.
type PlayerState struct {
	ID       string `json:"id"`
	Handle   string `json:"handle"`
	Progress int    `json:"progress"`
	Speed    int    `json:"speed"`
	Accuracy int    `json:"accuracy"`
}

// RoomStatePayload is the membership/countdown snapshot of a room.
type RoomStatePayload struct {
	RoomID               string        `json:"roomId"`
	Players              []PlayerState `json:"players"`
	CountdownMsRemaining *int64        `json:"countdownMsRemaining"`
	PassageLength        int           `json:"passageLength"`
	Passage              string        `json:"passage"`
}

// RaceStartPayload announces the authoritative race start.
type RaceStartPayload struct {
	RaceID             string `json:"raceId"`
	PassageFingerprint string `json:"passageFingerprint"`
	Passage            string `json:"passage"`
	StartedAt          int64  `json:"startedAt"`
}

// RaceProgressPayload is broadcast after every accepted keystroke batch.
type RaceProgressPayload struct {
	PlayerID      string `json:"playerId"`
	ProgressChars int    `json:"progressChars"`
	Speed         int    `json:"speed"`
	Accuracy      int    `json:"accuracy"`
}

// LeaderboardEntry ranks one player at the moment a race finishes.
type LeaderboardEntry struct {
	PlayerID   string `json:"playerId"`
	Speed      int    `json:"speed"`
	Accuracy   int    `json:"accuracy"`
	FinishedMs int64  `json:"finishedMs"`
}

// RaceFinishPayload carries the per-race leaderboard.
type RaceFinishPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// RaceWarningPayload tells a single connection its input was rejected.
type RaceWarningPayload struct {
	Reason string `json:"reason"`
}
