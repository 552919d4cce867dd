// Package storage is the durable snapshot layer shared by every store.
// Each store persists a single versioned record under its own name; a
// page reload (process restart) reads it back for instant cold-start
// rendering before the first network refresh lands.
package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record exists under the given name.
var ErrNotFound = errors.New("storage: record not found")

// Record is the serialized state persisted under one store name.
type Record struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
	SavedAt       time.Time       `json:"saved_at"`
}

// Event describes a change made by another session sharing the backend.
type Event struct {
	Origin  string
	Name    string
	Deleted bool
	Record  Record
}

// Backend stores records and notifies subscribers of changes. The origin
// id lets a session skip its own writes, mirroring how browser storage
// events fire only in other tabs.
type Backend interface {
	Read(name string) (Record, error)
	Write(origin, name string, rec Record) error
	Delete(origin, name string) error
	Subscribe(fn func(Event)) (cancel func())
}

// Session is one storefront instance's handle on the backend, the
// equivalent of a browser tab. Sessions sharing a backend see each
// other's changes; a session never sees its own.
type Session struct {
	backend Backend
	id      string
}

// Open returns a new session over the backend.
func Open(b Backend) *Session {
	return &Session{backend: b, id: uuid.NewString()}
}

// ID identifies this session in change events.
func (s *Session) ID() string { return s.id }

// Save marshals v and writes it under name with the given schema version.
func (s *Session) Save(name string, version int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Write(s.id, name, Record{
		SchemaVersion: version,
		Data:          data,
		SavedAt:       time.Now(),
	})
}

// Load reads the record under name into v. It returns false without
// touching v when the record is absent, carries a different schema
// version, or cannot be decoded. Corrupt or outdated snapshots are
// treated as empty rather than trusted.
func (s *Session) Load(name string, version int, v any) (bool, error) {
	rec, err := s.backend.Read(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if rec.SchemaVersion != version {
		return false, nil
	}
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// Subscribe registers fn for changes made by other sessions. The
// returned cancel releases the subscription.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	return s.backend.Subscribe(func(e Event) {
		if e.Origin == s.id {
			return
		}
		fn(e)
	})
}
