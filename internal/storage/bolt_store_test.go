package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, opts Options) (*boltStore, *time.Time) {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "relay.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })

	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }
	store.lastSweep = clock
	return store, &clock
}

func TestBoltStoreMarksAndExpiresItems(t *testing.T) {
	store, clock := openTestStore(t, Options{ItemTTL: time.Minute, CleanupInterval: time.Hour})

	seen, err := store.SeenItem("log:abc")
	if err != nil || seen {
		t.Fatalf("expected unseen item, seen=%v err=%v", seen, err)
	}

	if err := store.MarkItem("log:abc"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}

	seen, err = store.SeenItem("log:abc")
	if err != nil || !seen {
		t.Fatalf("expected item marked as seen, got seen=%v err=%v", seen, err)
	}
	if n, err := store.Count(); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	*clock = clock.Add(2 * time.Minute)

	seen, err = store.SeenItem("log:abc")
	if err != nil || seen {
		t.Fatalf("expected entry to expire, seen=%v err=%v", seen, err)
	}
	if n, err := store.Count(); err != nil || n != 0 {
		t.Fatalf("Count after expiry = %d, %v", n, err)
	}
}

func TestBoltStoreRemarkKeepsFirstMark(t *testing.T) {
	store, clock := openTestStore(t, Options{ItemTTL: time.Minute, CleanupInterval: time.Hour})
	first := clock.Unix()

	if err := store.MarkItem("request:1:pending"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}
	*clock = clock.Add(50 * time.Second)
	if err := store.MarkItem("request:1:pending"); err != nil {
		t.Fatalf("MarkItem again: %v", err)
	}
	*clock = clock.Add(50 * time.Second)

	if seen, _ := store.SeenItem("request:1:pending"); !seen {
		t.Fatalf("re-marking should extend the expiry")
	}
	err := store.db.View(func(tx *bolt.Tx) error {
		rec, ok, err := getRecord(tx, "request:1:pending")
		if err != nil || !ok {
			t.Fatalf("record missing: %v", err)
		}
		if rec.MarkedAt != first {
			t.Fatalf("MarkedAt = %d, want %d", rec.MarkedAt, first)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestBoltStoreSweepsExpiredRecords(t *testing.T) {
	store, clock := openTestStore(t, Options{ItemTTL: time.Minute, CleanupInterval: 10 * time.Minute})

	if err := store.MarkItem("log:old"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}
	if err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemBucket).Put([]byte("log:garbage"), []byte("not-json"))
	}); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}

	*clock = clock.Add(11 * time.Minute)
	if err := store.MarkItem("log:new"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}

	keys := 0
	_ = store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket(itemBucket).Stats().KeyN
		return nil
	})
	if keys != 1 {
		t.Fatalf("expected only the fresh record to remain, got %d keys", keys)
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay.db")

	first, err := NewStore(TypeBBolt, Options{Path: path})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.MarkItem("request:42:pending"); err != nil {
		t.Fatalf("MarkItem: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewStore("BBolt", Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	seen, err := second.SeenItem("request:42:pending")
	if err != nil || !seen {
		t.Fatalf("expected item to survive reopen, seen=%v err=%v", seen, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore(TypeNone, Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkItem("x"); err != nil {
		t.Fatalf("noop store MarkItem: %v", err)
	}
	if seen, _ := store.SeenItem("x"); seen {
		t.Fatalf("noop store should never report items as seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
	if _, err := NewStore(TypeBBolt, Options{Path: " "}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
