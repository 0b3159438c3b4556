package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"go.uber.org/zap"
)

// wsMessage mirrors the teacher's {type, payload} envelope, generalized
// to the bus's topic names instead of a fixed "graph"/"log"/"alert" set.
type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // auth/origin policy is the transport collaborator's concern
}

// wsHub fans every eventbus publish out to connected clients. Auth is
// enforced upstream of the core by the HTTP collaborator; the hub only
// knows "this path requires the connection to already be accepted".
type wsHub struct {
	log     *zap.Logger
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newWSHub(log *zap.Logger) *wsHub {
	return &wsHub{log: log, clients: make(map[*websocket.Conn]struct{})}
}

// start subscribes the hub to every topic this daemon publishes and
// keeps it wired until ctx is cancelled.
func (h *wsHub) start(ctx context.Context, bus *eventbus.Bus) {
	if bus == nil {
		return
	}
	for _, topic := range []string{
		eventbus.TopicDeviceAdded,
		eventbus.TopicDeviceUpdated,
		eventbus.TopicDeviceRemoved,
		eventbus.TopicKeyDiscovered,
	} {
		t := topic
		bus.Subscribe(t, func(payload interface{}) {
			select {
			case <-ctx.Done():
				return
			default:
			}
			h.broadcast(wsMessage{Type: t, Payload: payload})
		})
	}
}

func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *wsHub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("websocket marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
