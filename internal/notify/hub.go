package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"nftvault/internal/auth"
)

// Hub pushes events to connected websocket clients. A client only sees
// events owned by the user it authenticated as. Each client has a small
// outbound queue; slow clients lose events rather than stall the hub.
type Hub struct {
	Logger *zap.Logger
	// OriginPatterns lists extra origins allowed to connect besides the
	// request's own host.
	OriginPatterns []string

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	send     chan []byte
	ownerID  string
	walletID string
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{Logger: logger, clients: map[*hubClient]struct{}{}}
}

func (h *Hub) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if ev.OwnerID == "" || c.ownerID != ev.OwnerID {
			continue
		}
		if c.walletID != "" && c.walletID != ev.WalletID {
			continue
		}
		select {
		case c.send <- payload:
		default:
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request for the user in its context; ?wallet_id=
// further limits the stream to one wallet.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	client := &hubClient{send: make(chan []byte, 32), ownerID: owner, walletID: r.URL.Query().Get("wallet_id")}
	h.add(client)
	defer h.remove(client)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-client.send:
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (h *Hub) add(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
