// Package store persists small key/value state in a bbolt file: the current session,
// the saved credentials and user settings such as offline mode.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

var (
	bucketAuth     = []byte("auth")
	bucketSettings = []byte("settings")
)

const (
	keySession     = "session"
	keyCredentials = "credentials"
	keyOfflineMode = "offline_mode"
)

// Store implements session, credential and settings persistence using bbolt.
//
// An empty path opens a memory-only store.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// Open opens or creates the bbolt file at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt db: %v", shared.ErrStore, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAuth, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to create buckets: %v", shared.ErrStore, err)
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Session returns the stored session, or nil when there is none.
func (s *Store) Session() (*models.Session, error) {
	var sess models.Session
	ok, err := s.get(bucketAuth, keySession, &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) SaveSession(sess models.Session) error {
	return s.set(bucketAuth, keySession, sess)
}

func (s *Store) ClearSession() error {
	return s.delete(bucketAuth, keySession)
}

// Credentials returns the stored credentials, or nil when there are none.
func (s *Store) Credentials() (*models.Credentials, error) {
	var creds models.Credentials
	ok, err := s.get(bucketAuth, keyCredentials, &creds)
	if err != nil || !ok {
		return nil, err
	}
	return &creds, nil
}

func (s *Store) SaveCredentials(creds models.Credentials) error {
	return s.set(bucketAuth, keyCredentials, creds)
}

func (s *Store) ClearCredentials() error {
	return s.delete(bucketAuth, keyCredentials)
}

// OfflineMode reports whether mutations should be queued instead of sent. Defaults to false.
func (s *Store) OfflineMode() (bool, error) {
	var enabled bool
	if _, err := s.get(bucketSettings, keyOfflineMode, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

func (s *Store) SetOfflineMode(enabled bool) error {
	return s.set(bucketSettings, keyOfflineMode, enabled)
}

func (s *Store) get(bucket []byte, key string, dest any) (bool, error) {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	data, ok := s.cache[cacheKey]
	s.mu.RUnlock()

	if !ok && s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			if b == nil {
				return nil
			}
			if v := b.Get([]byte(key)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("%w: failed to read %s: %v", shared.ErrStore, key, err)
		}

		if data != nil {
			s.mu.Lock()
			s.cache[cacheKey] = data
			s.mu.Unlock()
		}
	}

	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: failed to decode %s: %v", shared.ErrStore, key, err)
	}
	return true, nil
}

func (s *Store) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %v", shared.ErrStore, key, err)
	}

	if s.db != nil {
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("%w: failed to write %s: %v", shared.ErrStore, key, err)
		}
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) delete(bucket []byte, key string) error {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete %s: %v", shared.ErrStore, key, err)
	}
	return nil
}
