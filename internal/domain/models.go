package domain

import (
	"encoding/json"
	"time"
)

// Item kinds produced by relay sources.
const (
	KindLogEntry       = "log_entry"
	KindPendingRequest = "pending_request"
)

// Item is one unit the relay forwards downstream: a log entry or a pending
// reimbursement request, carried as the raw JSON the API returned.
type Item struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload"`
	ObservedAt time.Time       `json:"observed_at"`
}
