package history

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
)

var logger = logging.Get("history")

// ErrNotFound is returned when no record exists for an app.
var ErrNotFound = errors.New("history record not found")

// Store wraps Badger for history records.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rec, replacing any earlier record for the same app.
func (s *Store) Put(rec *Record) error {
	if rec.Version == 0 {
		rec.Version = RecordVersion
	}
	value, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encoding history record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(rec.AppID), value)
	})
}

// Get returns the record for id.
func (s *Store) Get(id appinfo.AppID) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(rec.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records ordered by app id. Records that fail to decode
// are skipped.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := keyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			if err := item.Value(rec.Decode); err != nil {
				logger.Warn("skipping undecodable history record", "key", string(item.Key()), "error", err)
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]appinfo.AppID, len(records))
	byID := make(map[appinfo.AppID]Record, len(records))
	for i, r := range records {
		ids[i] = r.AppID
		byID[r.AppID] = r
	}
	appinfo.SortIDs(ids)
	sorted := make([]Record, 0, len(ids))
	for _, id := range ids {
		sorted = append(sorted, byID[id])
	}
	return sorted, nil
}

// Delete removes the record for id. Deleting a missing record is not an error.
func (s *Store) Delete(id appinfo.AppID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(id))
	})
}

// Clear removes every record and returns how many were deleted.
func (s *Store) Clear() (int, error) {
	n := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := keyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
