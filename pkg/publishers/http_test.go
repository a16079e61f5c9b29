package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adda-Baaj/reimbursement-client/internal/domain"
)

func TestHTTPPublisherSuccess(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("missing header, got %s", got)
		}
		if r.Header.Get("X-Event-Id") == "" {
			t.Errorf("missing X-Event-Id header")
		}
		if got := r.Header.Get("X-Item-Kind"); got != domain.KindPendingRequest {
			t.Errorf("X-Item-Kind = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode event: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("http://api.local", domain.Item{ID: "request:42:pending", Kind: domain.KindPendingRequest, Payload: json.RawMessage(`{"id":"42"}`)})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if received.EventID != evt.EventID || received.Item.ID != "request:42:pending" {
		t.Fatalf("server received %+v", received)
	}
	if string(received.Item.Payload) != `{"id":"42"}` {
		t.Fatalf("payload = %s", received.Item.Payload)
	}
}

func TestHTTPPublisherMethod(t *testing.T) {
	cases := []struct {
		name, method, want string
	}{
		{name: "default", method: "", want: http.MethodPost},
		{name: "put", method: http.MethodPut, want: http.MethodPut},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotMethod string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
				ID:   "hook",
				Type: TypeHTTP,
				HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: tc.method, TimeoutSeconds: 1},
			}, nil)
			if err != nil {
				t.Fatalf("newHTTPPublisher: %v", err)
			}
			if err := pub.Publish(context.Background(), NewEvent("http://api.local", domain.Item{ID: "log:1"})); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if gotMethod != tc.want {
				t.Fatalf("method = %s, want %s", gotMethod, tc.want)
			}
		})
	}
}

func TestHTTPPublisherRejectionCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, TimeoutSeconds: 1},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	err = pub.Publish(context.Background(), Event{})
	if err == nil {
		t.Fatalf("expected error on 503")
	}
	if msg := err.Error(); !strings.Contains(msg, "503") || !strings.Contains(msg, "queue full") {
		t.Fatalf("error = %q", msg)
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("x", maxWebhookSnippet+100)
	if got := snippet([]byte(long)); len(got) != maxWebhookSnippet {
		t.Fatalf("len(snippet) = %d", len(got))
	}
	if got := snippet([]byte("  short \n")); got != "short" {
		t.Fatalf("snippet = %q", got)
	}
}
