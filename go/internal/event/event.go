package event

import (
	"encoding/json"
	"time"
)

// Type identifies a websocket message on the wire. Actions flow client to
// server, events flow server to client.
type Type string

const (
	// Inbound actions.
	ActionRequestMatch Type = "request-match"
	ActionKeystroke    Type = "keystroke"
	ActionSubmitScore  Type = "submit-score"

	// Outbound events.
	EventRoomState    Type = "room-state"
	EventRaceStart    Type = "race-start"
	EventRaceProgress Type = "race-progress"
	EventRaceFinish   Type = "race-finish"
	EventScoresUpdate Type = "scores-update"
	EventRaceWarning  Type = "race-warning"
)

// Event is the envelope shared by actions and events.
type Event struct {
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New wraps a payload into an envelope stamped with the given time.
func New(t Type, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Timestamp: at, Data: data}, nil
}

// DecodeData unmarshals the envelope payload into out.
func (e Event) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}
