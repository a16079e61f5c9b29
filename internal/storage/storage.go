// Package storage persists the relay's record of forwarded items.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by NewStore.
const (
	TypeBBolt = "bbolt"
	TypeNone  = "none"
)

const (
	defaultItemTTL         = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// Store tracks the ids of items the relay already forwarded.
type Store interface {
	SeenItem(id string) (bool, error)
	MarkItem(id string) error
	Count() (int, error)
	Close() error
}

// Options configures a Store. Zero durations fall back to 30 days of
// retention swept every 12 hours.
type Options struct {
	Path            string
	ItemTTL         time.Duration
	CleanupInterval time.Duration
}

// NewStore opens the backend named typ. "none" (or empty) forgets everything,
// so every item is forwarded on every pass.
func NewStore(typ string, opts Options) (Store, error) {
	opts = normalizeOptions(opts)

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", TypeNone, "disabled":
		return nopStore{}, nil
	case TypeBBolt:
		if opts.Path == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.Path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	opts.Path = strings.TrimSpace(opts.Path)
	if opts.ItemTTL <= 0 {
		opts.ItemTTL = defaultItemTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type nopStore struct{}

func (nopStore) SeenItem(string) (bool, error) { return false, nil }
func (nopStore) MarkItem(string) error         { return nil }
func (nopStore) Count() (int, error)           { return 0, nil }
func (nopStore) Close() error                  { return nil }
