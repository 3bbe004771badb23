package index

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/groovy-tools/gls/internal/source"
)

// bucketName is the BoltDB bucket holding persisted symbol indices.
const bucketName = "symbols"

// Store persists the workspace symbol index so a fresh process starts with
// the previous bulk-indexing run's results instead of an empty map.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the index database at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Put persists one file's symbol index.
func (s *Store) Put(si *SymbolIndex) error {
	data, err := json.Marshal(si)
	if err != nil {
		return fmt.Errorf("failed to encode symbol index: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(si.Key), data)
	})
}

// Delete removes one file's persisted index.
func (s *Store) Delete(key source.Key) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear drops every persisted index.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// LoadAll reads every persisted index. Entries that fail to decode are
// skipped — a stale or corrupt entry just gets re-indexed later.
func (s *Store) LoadAll() (map[source.Key]*SymbolIndex, error) {
	indices := make(map[source.Key]*SymbolIndex)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var si SymbolIndex
			if err := json.Unmarshal(v, &si); err != nil {
				return nil
			}

			indices[source.Key(k)] = &si
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return indices, nil
}
