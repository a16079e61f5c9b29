package relay

import (
	"context"
	"encoding/json"

	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
	"github.com/Adda-Baaj/reimbursement-client/pkg/publishers"
)

// APIClient is the part of the reimbursement client the sources poll.
type APIClient interface {
	FetchLogs(ctx context.Context) json.RawMessage
	ListPendingRequests(ctx context.Context) (json.RawMessage, error)
}

// Source turns one API view into relay items.
type Source interface {
	Name() string
	Kind() string
	Poll(ctx context.Context) ([]domain.Item, error)
}

// EventPublisher publishes events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which items were already forwarded.
type Deduper interface {
	SeenItem(id string) (bool, error)
	MarkItem(id string) error
}
