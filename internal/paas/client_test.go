package paas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_LoginThenCreateLog(t *testing.T) {
	var logins atomic.Int32
	var gotAuth string
	var gotLog CreateLogRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			logins.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":      "tok-1",
				"expires_at": time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		case "/api/v1/logs":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&gotLog)
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := c.CreateLog(ctx, CreateLogRequest{Agent: "a", Action: "nftvault_done", Level: "info"}); err != nil {
			t.Fatalf("create log: %v", err)
		}
	}
	if logins.Load() != 1 {
		t.Fatalf("logins=%d want 1", logins.Load())
	}
	if gotAuth != "Bearer tok-1" || gotLog.Action != "nftvault_done" {
		t.Fatalf("auth=%q log=%+v", gotAuth, gotLog)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	err := c.Login(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err=%v", err)
	}
}

func TestClient_RequiresConfig(t *testing.T) {
	if err := (&Client{APIKey: "k"}).Login(context.Background()); err == nil {
		t.Fatalf("expected empty base url error")
	}
	if err := (&Client{BaseURL: "http://x"}).Login(context.Background()); err == nil {
		t.Fatalf("expected empty api key error")
	}
}
