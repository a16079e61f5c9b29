package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry with the given builders keyed by type.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows every sink type the relay supports.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
	})
}

// Register associates a builder with a publisher type.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}
	r.builders[typ] = builder
}

// Build creates the publisher for cfg. Entries with Kinds set come back
// wrapped so the fanout only routes those kinds to them.
func (r *Registry) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	builder := r.builders[strings.ToLower(cfg.Type)]
	if builder == nil {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	pub, err := builder(ctx, cfg, orNop(log))
	if err != nil {
		return nil, err
	}
	if len(cfg.Kinds) == 0 {
		return pub, nil
	}
	return &routedPublisher{Publisher: pub, cfg: cfg}, nil
}

// BuildAll builds a publisher per config. Publishers built before a failure
// are closed.
func (r *Registry) BuildAll(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := r.Build(ctx, cfg, log)
		if err != nil {
			errs := []error{fmt.Errorf("publisher %q: %w", cfg.ID, err)}
			for _, p := range pubs {
				errs = append(errs, p.Close())
			}
			return nil, errors.Join(errs...)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

type routedPublisher struct {
	Publisher
	cfg PublisherConfig
}

func (p *routedPublisher) Accepts(kind string) bool { return p.cfg.Accepts(kind) }
