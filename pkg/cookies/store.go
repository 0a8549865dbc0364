// Package cookies persists per-platform cookie headers so rendered and
// authenticated fetches can reuse a logged-in session.
package cookies

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCookies = []byte("cookies")

type record struct {
	Cookie    string    `json:"cookie"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store maps a platform name to a raw "k=v; k2=v2" cookie header.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cookie store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCookies)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cookie store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the cookie for platform, or "" when none is saved.
func (s *Store) Get(platform string) (string, error) {
	var rec record
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketCookies).Get([]byte(platform))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return "", fmt.Errorf("read cookie for %s: %w", platform, err)
	}
	return rec.Cookie, nil
}

// Save stores cookie for platform, replacing any previous value.
func (s *Store) Save(platform, cookie string) error {
	data, err := json.Marshal(record{Cookie: strings.TrimSpace(cookie), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCookies).Put([]byte(platform), data)
	})
}

// Clear removes the cookie for platform. Clearing an absent entry is not an error.
func (s *Store) Clear(platform string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCookies).Delete([]byte(platform))
	})
}

// List returns every saved platform with the time its cookie was last written.
func (s *Store) List() (map[string]time.Time, error) {
	out := map[string]time.Time{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCookies).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out[string(k)] = rec.UpdatedAt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
