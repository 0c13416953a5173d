// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "time"

// VocabularyStore persists named keyword vocabularies to durable storage.
// The backing store (bbolt) keeps one record per name. Concurrent reads are
// safe; writes are serialized by the adapter.
//
// Stored vocabularies are inputs for building annotators. Matches and
// annotated documents are never persisted.
type VocabularyStore interface {
	// SaveVocabulary persists a vocabulary, overwriting any record with the same name.
	SaveVocabulary(v *VocabularyRecord) error

	// LoadVocabulary retrieves a vocabulary by name.
	// Returns nil, nil if no such vocabulary exists.
	LoadVocabulary(name string) (*VocabularyRecord, error)

	// ListVocabularies returns the names of all stored vocabularies, sorted.
	ListVocabularies() ([]string, error)

	// DeleteVocabulary removes a vocabulary.
	// Idempotent: deleting a nonexistent vocabulary is not an error.
	DeleteVocabulary(name string) error
}

// VocabularyRecord is the persisted form of a keyword vocabulary.
type VocabularyRecord struct {
	Name          string              `json:"name"`
	Label         string              `json:"label"`
	CaseSensitive bool                `json:"case_sensitive"`
	Keywords      []string            `json:"keywords,omitempty"` // plain keywords, canonical = surface
	Dict          map[string][]string `json:"dict,omitempty"`     // canonical -> variants
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Size returns the number of variant entries in the record (duplicates included).
func (r *VocabularyRecord) Size() int {
	n := len(r.Keywords)
	for _, variants := range r.Dict {
		n += len(variants)
	}
	return n
}
