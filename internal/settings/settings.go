// Package settings persists operator preferences across restarts.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sweeney/agent-panel/internal/logic"
)

// ErrNotFound is returned by Load before anything has been saved.
var ErrNotFound = errors.New("settings: not found")

var (
	bucketPrefs = []byte("prefs")
	keyPanel    = []byte("panel")
)

// Prefs are the values restored at boot.
type Prefs struct {
	Mode      logic.Mode
	Backlight uint8
	UpdatedAt time.Time
}

type prefsStorage struct {
	Mode      string    `json:"mode"`
	Backlight uint8     `json:"backlight_percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a bbolt-backed preference store.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPrefs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Load returns the saved preferences. A stored mode name that no longer
// exists falls back to the dashboard.
func (s *Store) Load() (Prefs, error) {
	var st prefsStorage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketPrefs)
		}
		data := b.Get(keyPanel)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &st)
	})
	if err != nil {
		return Prefs{}, err
	}

	mode, _ := logic.ParseMode(st.Mode)
	backlight := st.Backlight
	if backlight > 100 {
		backlight = 100
	}
	return Prefs{Mode: mode, Backlight: backlight, UpdatedAt: st.UpdatedAt}, nil
}

// Save replaces the stored preferences.
func (s *Store) Save(p Prefs) error {
	data, err := json.Marshal(prefsStorage{
		Mode:      p.Mode.String(),
		Backlight: p.Backlight,
		UpdatedAt: p.UpdatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketPrefs)
		}
		return b.Put(keyPanel, data)
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
