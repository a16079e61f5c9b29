package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var itemBucket = []byte("relay_items")

// itemRecord is the value stored per forwarded item id.
type itemRecord struct {
	MarkedAt  int64 `json:"marked_at"`
	ExpiresAt int64 `json:"expires_at"`
}

func (r itemRecord) live(now time.Time) bool {
	return r.ExpiresAt > now.Unix()
}

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	itemTTL         time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

// openBolt opens (or creates) the database at path.
func openBolt(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{
		db:              db,
		itemTTL:         opts.ItemTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
		lastSweep:       time.Now(),
	}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenItem reports whether id was marked and has not expired yet.
func (b *boltStore) SeenItem(id string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := b.now()
	var seen bool
	err := b.db.View(func(tx *bolt.Tx) error {
		rec, ok, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		seen = ok && rec.live(now)
		return nil
	})
	return seen, err
}

// MarkItem records id as forwarded for the configured TTL. Re-marking keeps
// the original MarkedAt and extends the expiry.
func (b *boltStore) MarkItem(id string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeSweep(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		rec, ok, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			rec.MarkedAt = now.Unix()
		}
		rec.ExpiresAt = now.Add(b.itemTTL).Unix()
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(itemBucket).Put([]byte(id), raw)
	})
}

// Count returns how many unexpired ids are stored.
func (b *boltStore) Count() (int, error) {
	if b == nil || b.db == nil {
		return 0, nil
	}

	now := b.now()
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemBucket).ForEach(func(_, v []byte) error {
			if rec, ok := decodeRecord(v); ok && rec.live(now) {
				n++
			}
			return nil
		})
	})
	return n, err
}

// maybeSweep deletes expired or unreadable records at most once per cleanup interval.
func (b *boltStore) maybeSweep(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastSweep) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(itemBucket).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if rec, ok := decodeRecord(v); ok && rec.live(now) {
				continue
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired items: %w", err)
	}
	b.lastSweep = now
	return nil
}

func getRecord(tx *bolt.Tx, id string) (itemRecord, bool, error) {
	bucket := tx.Bucket(itemBucket)
	if bucket == nil {
		return itemRecord{}, false, fmt.Errorf("item bucket missing")
	}
	rec, ok := decodeRecord(bucket.Get([]byte(id)))
	return rec, ok, nil
}

func decodeRecord(value []byte) (itemRecord, bool) {
	if len(value) == 0 {
		return itemRecord{}, false
	}
	var rec itemRecord
	if err := json.Unmarshal(value, &rec); err != nil || rec.ExpiresAt <= 0 {
		return itemRecord{}, false
	}
	return rec, true
}
