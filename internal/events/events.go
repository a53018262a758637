// Package events provides the in-process change notification fabric: a small
// fan-out hub and the JSON envelope used when events leave the process (SSE
// streams, the redis bridge).
package events

import (
	"encoding/json"
	"time"
)

// Event types published by the job catalog, the user directory, and search
// sessions.
const (
	TypeJobsChanged  = "jobs.changed"
	TypeUsersChanged = "users.changed"
	TypeSnapshot     = "search.snapshot"
	TypePing         = "ping"
)

// Event is a typed notification. Data is optional and opaque to the hub.
type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// New builds a version-1 event stamped with the current UTC time. A data
// value that fails to marshal is dropped rather than failing the event.
func New(typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	return Event{Type: typ, Version: 1, At: time.Now().UTC(), Data: raw}
}

// Marshal renders the event as a single JSON line.
func (e Event) Marshal() string {
	b, _ := json.Marshal(e)
	return string(b)
}
