package storage

import (
	"errors"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRow is the gorm model for persisted records: one row per store
// name, whole record replaced on every write.
type snapshotRow struct {
	Name          string `gorm:"primaryKey;size:64"`
	SchemaVersion int    `gorm:"not null"`
	Data          []byte `gorm:"not null"`
	SavedAt       time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

// SQLiteBackend persists records to a local sqlite database. Change
// events are delivered to subscribers of this backend instance only;
// sessions wanting cross-session broadcast must share the instance.
type SQLiteBackend struct {
	db *gorm.DB

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// OpenSQLite opens (and migrates) the snapshot database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db, subs: make(map[int]func(Event))}, nil
}

func (b *SQLiteBackend) Read(name string) (Record, error) {
	var row snapshotRow
	err := b.db.First(&row, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return Record{
		SchemaVersion: row.SchemaVersion,
		Data:          row.Data,
		SavedAt:       row.SavedAt,
	}, nil
}

func (b *SQLiteBackend) Write(origin, name string, rec Record) error {
	row := snapshotRow{
		Name:          name,
		SchemaVersion: rec.SchemaVersion,
		Data:          rec.Data,
		SavedAt:       rec.SavedAt,
	}
	err := b.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return err
	}
	b.notify(Event{Origin: origin, Name: name, Record: rec})
	return nil
}

func (b *SQLiteBackend) Delete(origin, name string) error {
	if err := b.db.Delete(&snapshotRow{}, "name = ?", name).Error; err != nil {
		return err
	}
	b.notify(Event{Origin: origin, Name: name, Deleted: true})
	return nil
}

func (b *SQLiteBackend) Subscribe(fn func(Event)) (cancel func()) {
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

func (b *SQLiteBackend) notify(e Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}
