// Package bbolt implements ports.VocabularyStore using bbolt (embedded B+ tree).
// All vocabularies live in one "vocabularies" bucket, one JSON record per name.
// Writes are transactional: a crash mid-write cannot corrupt previously
// committed records.
package bbolt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kwtag/kwtag/internal/ports"
)

var bucketVocabularies = []byte("vocabularies")

// ErrEmptyName is returned when saving a record without a name.
var ErrEmptyName = errors.New("vocabulary name is empty")

// Store implements ports.VocabularyStore backed by bbolt.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// NewStore opens (or creates) a bbolt database at the given path. A database
// locked by another process fails after one second instead of blocking.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// IsLocked reports whether err is an open timeout caused by another process
// holding the database file lock.
func IsLocked(err error) bool {
	return errors.Is(err, bolt.ErrTimeout)
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveVocabulary persists rec, replacing any record with the same name.
// A zero UpdatedAt is set to the current time.
func (s *Store) SaveVocabulary(rec *ports.VocabularyRecord) error {
	if rec == nil {
		return fmt.Errorf("nil vocabulary")
	}
	if rec.Name == "" {
		return ErrEmptyName
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal vocabulary %q: %w", rec.Name, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketVocabularies)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.Name), data)
	})
}

// LoadVocabulary retrieves a vocabulary by name.
// Returns nil, nil if it does not exist.
func (s *Store) LoadVocabulary(name string) (*ports.VocabularyRecord, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVocabularies)
		if b == nil {
			return nil
		}
		// bbolt slices are only valid within the transaction
		if v := b.Get([]byte(name)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var rec ports.VocabularyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal vocabulary %q: %w", name, err)
	}
	return &rec, nil
}

// ListVocabularies returns every stored name in key order.
func (s *Store) ListVocabularies() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVocabularies)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// DeleteVocabulary removes a vocabulary.
// Idempotent: deleting a nonexistent vocabulary is not an error.
func (s *Store) DeleteVocabulary(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVocabularies)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(name))
	})
}
