// go/src/keystore/leveldb.go
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var keyPrefix = []byte("lamport/key/")

// LevelDB stores entries as JSON under lamport/key/<id>.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates the database in dir.
func OpenLevelDB(dir string) (*LevelDB, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", dir, err)
	}
	return &LevelDB{db: db}, nil
}

func dbKey(id string) []byte {
	return append(append([]byte(nil), keyPrefix...), id...)
}

// Put writes e with a synced write, so a spent state is on disk before the
// signature leaves the store.
func (l *LevelDB) Put(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
	}
	if err := l.db.Put(dbKey(e.ID), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("failed to save entry %s in LevelDB: %w", e.ID, err)
	}
	return nil
}

// Get loads the entry for id.
func (l *LevelDB) Get(id string) (*Entry, error) {
	data, err := l.db.Get(dbKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entry %s from LevelDB: %w", id, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entry %s: %w", id, err)
	}
	return &e, nil
}

// List returns every entry, oldest first.
func (l *LevelDB) List() ([]*Entry, error) {
	iter := l.db.NewIterator(util.BytesPrefix(keyPrefix), nil)
	defer iter.Release()

	var entries []*Entry
	for iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", iter.Key(), err)
		}
		entries = append(entries, &e)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate LevelDB: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
