package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
	"github.com/Adda-Baaj/reimbursement-client/internal/logger"
	"github.com/Adda-Baaj/reimbursement-client/pkg/metrics"
	"github.com/Adda-Baaj/reimbursement-client/pkg/publishers"
)

// Service polls every source once per Run and forwards items not seen before.
type Service struct {
	origin    string
	sources   []Source
	publisher EventPublisher
	deduper   Deduper
	metrics   *metrics.Manager
	log       logger.Logger
}

// NewService wires a relay pass. A nil deduper forwards everything on every
// pass; a nil metrics manager records nothing.
func NewService(origin string, sources []Source, pub EventPublisher, deduper Deduper, m *metrics.Manager, log logger.Logger) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		origin:    origin,
		sources:   sources,
		publisher: pub,
		deduper:   deduper,
		metrics:   m,
		log:       log,
	}
}

// Run executes one relay pass across all sources.
func (s *Service) Run(ctx context.Context) error {
	if s == nil || s.publisher == nil {
		return fmt.Errorf("relay service is not initialized")
	}
	if len(s.sources) == 0 {
		return fmt.Errorf("no sources configured for relay")
	}

	errs := s.runAll(ctx)
	s.reportStoreSize()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) runAll(ctx context.Context) []error {
	errs := make([]error, 0, len(s.sources))

	for _, src := range s.sources {
		if ctx.Err() != nil {
			break
		}
		if err := s.runSource(ctx, src); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("relay source failed", "source_error", map[string]any{
				"source": src.Name(),
				"error":  err.Error(),
			})
		}
	}

	return errs
}

func (s *Service) runSource(ctx context.Context, src Source) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObservePoll(src.Name(), time.Since(start), err) }()

	items, err := src.Poll(ctx)
	if err != nil {
		return fmt.Errorf("poll source %s: %w", src.Name(), err)
	}

	fresh := s.filterNewItems(src, items)

	var publishErrs []error
	published, unrouted := 0, 0
	for _, item := range fresh {
		if ctx.Err() != nil {
			break
		}
		if err := s.publishItem(ctx, item); err != nil {
			if errors.Is(err, publishers.ErrNoRoute) {
				unrouted++
				continue
			}
			publishErrs = append(publishErrs, err)
			continue
		}
		published++
	}

	s.log.InfoObj("relay source completed", "source_result", map[string]any{
		"source":          src.Name(),
		"items_polled":    len(items),
		"items_new":       len(fresh),
		"items_published": published,
		"items_unrouted":  unrouted,
	})
	return errors.Join(publishErrs...)
}

// publishItem sends item downstream and marks it seen once any sink accepted it.
func (s *Service) publishItem(ctx context.Context, item domain.Item) error {
	accepted, err := s.publisher.Publish(ctx, publishers.NewEvent(s.origin, item))
	if errors.Is(err, publishers.ErrNoRoute) {
		return err
	}
	if accepted == 0 {
		s.metrics.PublishFailed(item.Kind)
		if err == nil {
			err = errors.New("no publisher accepted the event")
		}
		return fmt.Errorf("publish item %s: %w", item.ID, err)
	}
	if err != nil {
		s.log.WarnObj("relay item partially published", "publish_partial", map[string]any{
			"item_id":  item.ID,
			"accepted": accepted,
			"error":    err.Error(),
		})
	}

	s.metrics.ItemPublished(item.Kind)
	if s.deduper == nil {
		return nil
	}
	if err := s.deduper.MarkItem(item.ID); err != nil {
		s.log.ErrorObj("relay mark item failed", "dedupe_error", map[string]any{
			"item_id": item.ID,
			"error":   err.Error(),
		})
	}
	return nil
}

// filterNewItems drops items already forwarded. Items whose lookup fails are kept.
func (s *Service) filterNewItems(src Source, items []domain.Item) []domain.Item {
	if s.deduper == nil {
		return items
	}

	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		seen, err := s.deduper.SeenItem(item.ID)
		if err != nil {
			s.log.WarnObj("relay dedupe lookup failed", "dedupe_error", map[string]any{
				"source":  src.Name(),
				"item_id": item.ID,
				"error":   err.Error(),
			})
			out = append(out, item)
			continue
		}
		if seen {
			s.metrics.ItemDuplicate(item.Kind)
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *Service) reportStoreSize() {
	counter, ok := s.deduper.(interface{ Count() (int, error) })
	if !ok {
		return
	}
	if n, err := counter.Count(); err == nil {
		s.metrics.SetStoredItems(n)
	}
}
