package relay

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/config"
	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
)

// NewSources builds the sources named in cfg order.
func NewSources(names []string, client APIClient) ([]Source, error) {
	if client == nil {
		return nil, fmt.Errorf("api client must not be nil")
	}
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case config.SourceLogs:
			sources = append(sources, &logSource{client: client})
		case config.SourcePending:
			sources = append(sources, &pendingSource{client: client})
		default:
			return nil, fmt.Errorf("unknown relay source %q", name)
		}
	}
	return sources, nil
}

// logSource emits every entry of /logs. Entries have no id, so the id is a
// hash of the compacted entry.
type logSource struct {
	client APIClient
}

func (s *logSource) Name() string { return config.SourceLogs }
func (s *logSource) Kind() string { return domain.KindLogEntry }

func (s *logSource) Poll(ctx context.Context) ([]domain.Item, error) {
	entries, err := splitArray(s.client.FetchLogs(ctx))
	if err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}

	now := time.Now().UTC()
	items := make([]domain.Item, 0, len(entries))
	for _, entry := range entries {
		var buf bytes.Buffer
		if err := json.Compact(&buf, entry); err != nil {
			return nil, fmt.Errorf("compact log entry: %w", err)
		}
		items = append(items, domain.Item{
			ID:         "log:" + hashBytes(buf.Bytes()),
			Kind:       domain.KindLogEntry,
			Source:     config.SourceLogs,
			Payload:    json.RawMessage(buf.Bytes()),
			ObservedAt: now,
		})
	}
	return items, nil
}

// pendingSource emits each pending request once per id and status.
type pendingSource struct {
	client APIClient
}

func (s *pendingSource) Name() string { return config.SourcePending }
func (s *pendingSource) Kind() string { return domain.KindPendingRequest }

func (s *pendingSource) Poll(ctx context.Context) ([]domain.Item, error) {
	raw, err := s.client.ListPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	entries, err := splitArray(raw)
	if err != nil {
		return nil, fmt.Errorf("decode pending requests: %w", err)
	}

	now := time.Now().UTC()
	items := make([]domain.Item, 0, len(entries))
	for _, entry := range entries {
		var head struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(entry, &head); err != nil || strings.TrimSpace(head.ID) == "" {
			continue
		}
		items = append(items, domain.Item{
			ID:         fmt.Sprintf("request:%s:%s", head.ID, head.Status),
			Kind:       domain.KindPendingRequest,
			Source:     config.SourcePending,
			Payload:    entry,
			ObservedAt: now,
		})
	}
	return items, nil
}

func splitArray(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func hashBytes(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec // non-cryptographic id generation
	return hex.EncodeToString(sum[:])
}
