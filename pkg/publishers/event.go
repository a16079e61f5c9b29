package publishers

import (
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
	"github.com/google/uuid"
)

// Event represents the payload published downstream.
type Event struct {
	EventID     string      `json:"event_id"`
	Origin      string      `json:"origin"`
	Item        domain.Item `json:"item"`
	PublishedAt time.Time   `json:"published_at"`
}

// NewEvent wraps an item observed on the API at origin.
func NewEvent(origin string, item domain.Item) Event {
	return Event{
		EventID:     uuid.NewString(),
		Origin:      origin,
		Item:        item,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes returns the non-empty routing attributes queue-style sinks
// attach to messages.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 3)
	for k, v := range map[string]string{
		"event_id":  e.EventID,
		"item_kind": e.Item.Kind,
		"source":    e.Item.Source,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}
