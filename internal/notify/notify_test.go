package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"nftvault/internal/auth"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (s *recordingSink) Notify(_ context.Context, ev Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type failingSink struct{}

func (failingSink) Notify(context.Context, Event) error { return errors.New("boom") }

func TestDispatcher_DeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	d := NewDispatcher(8, nil, failingSink{}, a, b)
	_ = d.Notify(context.Background(), Event{Type: EventIngestion, State: StatePending})
	_ = d.Notify(context.Background(), Event{Type: EventIngestion, State: StateDone})
	d.Close()

	if a.len() != 2 || b.len() != 2 {
		t.Fatalf("a=%d b=%d want 2 each", a.len(), b.len())
	}
	if a.events[0].At.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(1, nil, sink)

	start := time.Now()
	for i := 0; i < 10; i++ {
		_ = d.Notify(context.Background(), Event{Type: EventProgress})
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Notify blocked")
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected dropped events")
	}
	close(sink.block)
	d.Close()
	if got := sink.len() + int(d.Dropped()); got != 10 {
		t.Fatalf("delivered+dropped=%d want 10", got)
	}
	if err := d.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("notify after close: %v", err)
	}
}

func TestWebhookSink(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.State == StateNetworkFailed {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	sink := WebhookSink{URL: srv.URL}
	if err := sink.Notify(context.Background(), Event{Type: EventIngestion, WalletID: "w1", State: StateDone}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.WalletID != "w1" || got.State != StateDone {
		t.Fatalf("got=%+v", got)
	}
	err := sink.Notify(context.Background(), Event{State: StateNetworkFailed})
	var whErr *WebhookError
	if !errors.As(err, &whErr) || whErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err=%v", err)
	}
	if err := (WebhookSink{}).Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("empty url should be a no-op: %v", err)
	}
}

func TestPlatformSink_NilClientIsNoop(t *testing.T) {
	if err := (PlatformSink{}).Notify(context.Background(), Event{State: StateDone}); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func asUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-Test-User"); user != "" {
			r = r.WithContext(auth.WithUser(r.Context(), user))
		}
		h.ServeHTTP(w, r)
	})
}

func dialAs(ctx context.Context, t *testing.T, srv *httptest.Server, user, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+query, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-Test-User": []string{user}},
	})
	if err != nil {
		t.Fatalf("dial %s: %v", user, err)
	}
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Clients() != n {
		t.Fatalf("clients=%d want %d", hub.Clients(), n)
	}
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestHub_BroadcastsToSubscribers(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(asUser(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialAs(ctx, t, srv, "alice", "?wallet_id=w1")
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitClients(t, hub, 1)

	_ = hub.Notify(ctx, Event{Type: EventIngestion, OwnerID: "alice", WalletID: "other", State: StatePending})
	_ = hub.Notify(ctx, Event{Type: EventIngestion, OwnerID: "alice", WalletID: "w1", State: StateDone})

	if ev := readEvent(ctx, t, conn); ev.WalletID != "w1" || ev.State != StateDone {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestHub_ScopesEventsToOwner(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(asUser(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	alice := dialAs(ctx, t, srv, "alice", "")
	defer alice.Close(websocket.StatusNormalClosure, "")
	bob := dialAs(ctx, t, srv, "bob", "")
	defer bob.Close(websocket.StatusNormalClosure, "")
	waitClients(t, hub, 2)

	_ = hub.Notify(ctx, Event{Type: EventIngestion, OwnerID: "bob", WalletID: "wb", State: StatePending})
	_ = hub.Notify(ctx, Event{Type: EventIngestion, State: StatePending})
	_ = hub.Notify(ctx, Event{Type: EventIngestion, OwnerID: "alice", WalletID: "wa", State: StateDone})

	if ev := readEvent(ctx, t, alice); ev.WalletID != "wa" {
		t.Fatalf("alice received %+v", ev)
	}
	if ev := readEvent(ctx, t, bob); ev.WalletID != "wb" {
		t.Fatalf("bob received %+v", ev)
	}
}

func TestHub_RejectsAnonymous(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(asUser(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err == nil {
		t.Fatalf("anonymous dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp=%v err=%v", resp, err)
	}

	_, resp, err = websocket.Dial(ctx, "ws"+srv.URL[len("http"):], &websocket.DialOptions{
		HTTPHeader: http.Header{"X-Test-User": []string{"alice"}, "Origin": []string{"https://evil.example"}},
	})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-origin dial resp=%v err=%v", resp, err)
	}
}
