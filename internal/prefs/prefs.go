// Package prefs persists the companion's two pieces of local state, the
// API credential and the preferred model id, in a bbolt file.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketPrefs = []byte("prefs")
	keyAPIKey   = []byte("api_key")
	keyModel    = []byte("model")
)

// Store is a bbolt-backed key-value store.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("prefs dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create prefs bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key []byte) (string, error) {
	var v string
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucketPrefs).Get(key); raw != nil {
			v = string(raw)
		}
		return nil
	})
	return v, err
}

func (s *Store) put(key []byte, v string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if v == "" {
			return b.Delete(key)
		}
		return b.Put(key, []byte(v))
	})
}

// APIKey returns the stored credential, or "" when none is set.
func (s *Store) APIKey() (string, error) { return s.get(keyAPIKey) }

// SetAPIKey stores the credential; an empty key removes it.
func (s *Store) SetAPIKey(key string) error { return s.put(keyAPIKey, key) }

// PreferredModel returns the stored model id, or "".
func (s *Store) PreferredModel() (string, error) { return s.get(keyModel) }

// SetPreferredModel overwrites the stored model id.
func (s *Store) SetPreferredModel(id string) error { return s.put(keyModel, id) }
