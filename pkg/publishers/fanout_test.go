package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
)

type stubPublisher struct {
	id       string
	typ      string
	err      error
	closeErr error
	calls    int
	closed   bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return s.closeErr
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

func TestFanoutSkipsNilAndCloses(t *testing.T) {
	a := &stubPublisher{id: "a", typ: "sqs"}
	b := &stubPublisher{id: "b", typ: "sns", closeErr: errors.New("close failed")}
	fanout := NewFanout([]Publisher{a, nil, b})

	if fanout.Size() != 2 {
		t.Fatalf("Size = %d", fanout.Size())
	}
	if err := fanout.Close(); err == nil {
		t.Fatalf("expected close error to surface")
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected every publisher to be closed")
	}
}

func TestNilFanoutIsEmpty(t *testing.T) {
	var f *Fanout
	if n, err := f.Publish(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout publish = %d, %v", n, err)
	}
	if f.Size() != 0 || f.Close() != nil {
		t.Fatalf("nil fanout should be inert")
	}
}

func TestFanoutRoutesByKind(t *testing.T) {
	logs := &stubPublisher{id: "logs", typ: "http"}
	all := &stubPublisher{id: "all", typ: "sqs"}
	fanout := NewFanout([]Publisher{
		&routedPublisher{Publisher: logs, cfg: PublisherConfig{Kinds: []string{domain.KindLogEntry}}},
		all,
	})

	n, err := fanout.Publish(context.Background(), Event{Item: domain.Item{Kind: domain.KindPendingRequest}})
	if n != 1 || err != nil {
		t.Fatalf("publish = %d, %v", n, err)
	}
	if logs.calls != 0 || all.calls != 1 {
		t.Fatalf("pending item should only reach the unfiltered sink: logs=%d all=%d", logs.calls, all.calls)
	}
	if fanout.Routes(domain.KindLogEntry) != 2 || fanout.Routes(domain.KindPendingRequest) != 1 {
		t.Fatalf("unexpected route counts")
	}
}

func TestFanoutReportsNoRoute(t *testing.T) {
	only := &stubPublisher{id: "logs", typ: "http"}
	fanout := NewFanout([]Publisher{
		&routedPublisher{Publisher: only, cfg: PublisherConfig{Kinds: []string{domain.KindLogEntry}}},
	})

	_, err := fanout.Publish(context.Background(), Event{Item: domain.Item{Kind: domain.KindPendingRequest}})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	pubs, err := DefaultRegistry().BuildAll(context.Background(), []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
		{ID: "hook", Type: TypeHTTP, Kinds: []string{domain.KindPendingRequest}, HTTP: &HTTPPublisherConfig{URL: "https://example.com/2"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(pubs))
	}
	if _, ok := pubs[0].(Router); ok {
		t.Fatalf("publisher without kinds should not be wrapped")
	}
	r, ok := pubs[1].(Router)
	if !ok || r.Accepts(domain.KindLogEntry) || !r.Accepts(domain.KindPendingRequest) {
		t.Fatalf("publisher with kinds should route only those kinds")
	}
}

func TestBuildAllClosesBuiltPublishersOnFailure(t *testing.T) {
	built := &stubPublisher{id: "first", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return built, nil },
	})

	_, err := reg.BuildAll(context.Background(), []PublisherConfig{
		{ID: "first", Type: "stub"},
		{ID: "second", Type: "missing"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
	if !built.closed {
		t.Fatalf("expected already built publisher to be closed")
	}
}
