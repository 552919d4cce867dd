package storage

import (
	"encoding/json"
	"time"
)

// channelKey is the shared storage key used for cross-session broadcast.
// A message is written then immediately deleted; the transient write is
// what other sessions observe. The key never holds durable state.
const channelKey = "broadcast-channel"

// Message is one broadcast notification. Advisory only: no session is
// required to act on it.
type Message struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Broadcast tells other sessions on this backend that something changed.
// event is one of the enum.Event* names; payload may be nil.
func (s *Session) Broadcast(event string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = data
	}
	msg := Message{Event: event, Payload: raw, Timestamp: time.Now()}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	rec := Record{SchemaVersion: 1, Data: data, SavedAt: msg.Timestamp}
	if err := s.backend.Write(s.id, channelKey, rec); err != nil {
		return err
	}
	return s.backend.Delete(s.id, channelKey)
}

// OnBroadcast registers fn for broadcast messages from other sessions.
func (s *Session) OnBroadcast(fn func(Message)) (cancel func()) {
	return s.Subscribe(func(e Event) {
		if e.Name != channelKey || e.Deleted {
			return
		}
		var msg Message
		if err := json.Unmarshal(e.Record.Data, &msg); err != nil {
			return
		}
		fn(msg)
	})
}
