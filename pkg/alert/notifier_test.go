package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhook_Send(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "secret-token")
	if err := wh.Send("PM2.5 spike"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if gotBody["text"] != "PM2.5 spike" {
		t.Errorf("Expected text payload, got %v", gotBody)
	}
}

func TestWebhook_MissingCredentialsNoOp(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	// Missing token: Send must silently no-op.
	wh := NewWebhook(srv.URL, "")
	if err := wh.Send("should not be sent"); err != nil {
		t.Fatalf("Unconfigured Send must not error: %v", err)
	}
	if called {
		t.Error("Unconfigured webhook must not post")
	}
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "token")
	if err := wh.Send("text"); err == nil {
		t.Error("Expected error on HTTP 502")
	}
}

func TestEventMessage(t *testing.T) {
	baseline := 50.0
	spike := Event{Kind: KindSpike, Value: 62, Timestamp: "2025-01-01T10:00:00Z", Baseline: &baseline}
	if msg := spike.Message(); msg == "" {
		t.Error("Spike message empty")
	}

	abs := Event{Kind: KindAbsolute, Value: 95, Timestamp: "2025-01-01T10:00:00Z"}
	if msg := abs.Message(); msg == "" {
		t.Error("Absolute message empty")
	}
}
