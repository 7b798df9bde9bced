package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nick-enoent/maestro/pkg/topology"
	bolt "go.etcd.io/bbolt"
)

var bucketDesiredState = []byte("desired_state")

const desiredStateKey = "last_pushed"

// Cache is a local, best-effort mirror of the last DesiredState pushed to
// the datastore. It exists so a restarted controller has something to
// reconcile against before its first successful read of the cluster, and
// is never treated as authoritative: the datastore always wins once it is
// reachable again.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (creating if absent) the cache file under dataDir.
func OpenCache(dataDir string) (*Cache, error) {
	path := filepath.Join(dataDir, "maestro-cache.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDesiredState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

// Save persists state as the last-pushed snapshot.
func (c *Cache) Save(state *topology.DesiredState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal desired state: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDesiredState)
		return b.Put([]byte(desiredStateKey), data)
	})
}

// Load returns the last-pushed snapshot, or nil if none was ever saved.
func (c *Cache) Load() (*topology.DesiredState, error) {
	var state *topology.DesiredState
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDesiredState)
		data := b.Get([]byte(desiredStateKey))
		if data == nil {
			return nil
		}
		state = &topology.DesiredState{}
		return json.Unmarshal(data, state)
	})
	return state, err
}

// Close closes the underlying database file.
func (c *Cache) Close() error {
	return c.db.Close()
}
