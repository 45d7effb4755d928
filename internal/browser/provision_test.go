package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProvisionClient_Start(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.AccountRef != "acct-1" {
			t.Errorf("accountRef = %q", req.AccountRef)
		}
		json.NewEncoder(w).Encode(RemoteSession{
			ID:         "sess-1",
			Status:     "RUNNING",
			ConnectURL: "ws://example/devtools/1",
		})
	}))
	defer srv.Close()

	c := NewProvisionClient(srv.URL, "tok")
	sess, err := c.Start(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if sess.ConnectURL != "ws://example/devtools/1" {
		t.Errorf("ConnectURL = %q", sess.ConnectURL)
	}
	if sess.AccountRef != "acct-1" {
		t.Errorf("AccountRef = %q, want filled in", sess.AccountRef)
	}
}

func TestProvisionClient_StartErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewProvisionClient(srv.URL, "tok")
	if _, err := c.Start(context.Background(), "acct-1"); err == nil {
		t.Error("expected provisioning error on 503")
	}
}

func TestProvisionClient_StartMissingConnectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RemoteSession{ID: "sess-1", Status: "RUNNING"})
	}))
	defer srv.Close()

	c := NewProvisionClient(srv.URL, "tok")
	if _, err := c.Start(context.Background(), "acct-1"); err == nil {
		t.Error("expected error for response without connect url")
	}
}

func TestProvisionClient_Stop(t *testing.T) {
	var stopped string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stopped = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewProvisionClient(srv.URL, "tok")
	if err := c.Stop(context.Background(), "acct-1"); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if stopped != "/v1/sessions/acct-1/stop" {
		t.Errorf("stop path = %q", stopped)
	}
}
