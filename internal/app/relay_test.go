package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/internal/config"
)

type sink struct {
	mu     sync.Mutex
	events []map[string]any
}

func (s *sink) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var evt map[string]any
	if err := json.Unmarshal(body, &evt); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func writePublishersFile(t *testing.T, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	content := fmt.Sprintf("publishers:\n  - id: sink\n    type: http\n    http:\n      url: %s\n", url)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}
	return path
}

func testConfig(t *testing.T, apiURL, publishersFile string) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:                "reimbursement-client",
		APIOrigin:              apiURL,
		RequestTimeout:         2 * time.Second,
		PublishersFile:         publishersFile,
		RelayInterval:          20 * time.Millisecond,
		RelaySources:           []string{config.SourceLogs, config.SourcePending},
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(t.TempDir(), "relay.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestRelayForwardsEachItemOnce(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/logs":
			_, _ = w.Write([]byte(`[{"type":"transaction","action":"submit_claim"}]`))
		case "/api/requests/status/pending":
			_, _ = w.Write([]byte(`[{"id":"7","status":"pending"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	out := &sink{}
	sinkSrv := httptest.NewServer(http.HandlerFunc(out.handler))
	defer sinkSrv.Close()

	cfg := testConfig(t, api.URL, writePublishersFile(t, sinkSrv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := NewRelay(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Several ticks pass; the dedupe store keeps the sink at two events.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop after cancel")
	}

	if got := out.count(); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	for _, evt := range out.events {
		if evt["origin"] != api.URL {
			t.Fatalf("unexpected origin in event %v", evt)
		}
	}
}

func TestNewRelayValidatesConfig(t *testing.T) {
	if _, err := NewRelay(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	cfg := testConfig(t, "ftp://claims", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := NewRelay(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for bad origin")
	}

	cfg = testConfig(t, "http://localhost:8000", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := NewRelay(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing publishers file")
	}
}

func TestRelayServesMetrics(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer api.Close()
	sinkSrv := httptest.NewServer(http.HandlerFunc((&sink{}).handler))
	defer sinkSrv.Close()

	cfg := testConfig(t, api.URL, writePublishersFile(t, sinkSrv.URL))
	cfg.StorageType = "none"
	cfg.MetricsAddr = "127.0.0.1:0"

	r, err := NewRelay(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	if r.metricsSrv == nil {
		t.Fatalf("expected metrics server when metrics_addr is set")
	}

	rec := httptest.NewRecorder()
	r.metricsSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	r.close()
}
