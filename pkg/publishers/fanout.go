package publishers

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRoute is returned by Fanout.Publish when no publisher takes the
// event's item kind.
var ErrNoRoute = errors.New("no publisher routes this item kind")

// Fanout sends each event to every publisher that routes its item kind.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a fanout over pubs, skipping nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{publishers: make([]Publisher, 0, len(pubs))}
	for _, p := range pubs {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish forwards evt and returns how many publishers accepted it along with
// the joined errors of those that failed.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	routed, accepted := 0, 0
	for _, p := range f.publishers {
		if !routes(p, evt.Item.Kind) {
			continue
		}
		routed++
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			continue
		}
		accepted++
	}
	if routed == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoRoute, evt.Item.Kind)
	}
	return accepted, errors.Join(errs...)
}

// Routes returns how many publishers take items of kind.
func (f *Fanout) Routes(kind string) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, p := range f.publishers {
		if routes(p, kind) {
			n++
		}
	}
	return n
}

func routes(p Publisher, kind string) bool {
	r, ok := p.(Router)
	return !ok || r.Accepts(kind)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases every publisher and joins their errors.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s] close: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
