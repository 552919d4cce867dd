package storage

import "sync"

// MemoryBackend keeps records in a map. It backs tests and the demo
// binary when no snapshot database is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
	subs    map[int]func(Event)
	nextSub int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]Record),
		subs:    make(map[int]func(Event)),
	}
}

func (b *MemoryBackend) Read(name string) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.records[name]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (b *MemoryBackend) Write(origin, name string, rec Record) error {
	b.mu.Lock()
	b.records[name] = rec
	subs := b.snapshotSubs()
	b.mu.Unlock()

	notify(subs, Event{Origin: origin, Name: name, Record: rec})
	return nil
}

func (b *MemoryBackend) Delete(origin, name string) error {
	b.mu.Lock()
	delete(b.records, name)
	subs := b.snapshotSubs()
	b.mu.Unlock()

	notify(subs, Event{Origin: origin, Name: name, Deleted: true})
	return nil
}

func (b *MemoryBackend) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list; callers must hold mu.
func (b *MemoryBackend) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	return subs
}

// notify runs outside the backend lock so subscribers may call back into
// the backend.
func notify(subs []func(Event), e Event) {
	for _, fn := range subs {
		fn(e)
	}
}
