package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// WSHub fans event notifications out to connected websocket clients.
// Clients only listen; inbound frames are drained and discarded.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	seq     atomic.Uint64
}

func NewWSHub() *WSHub {
	return &WSHub{clients: map[*websocket.Conn]struct{}{}}
}

func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

type wsEvent struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Topic   string         `json:"topic"`
	PaneID  string         `json:"paneId,omitempty"`
	Payload map[string]any `json:"payload"`
}

func (h *WSHub) Publish(topic, paneID string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	msg, err := json.Marshal(wsEvent{
		ID:      fmt.Sprintf("evt_%d", h.seq.Add(1)),
		Type:    "event",
		Topic:   topic,
		PaneID:  paneID,
		Payload: payload,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_ = c.Write(ctx, websocket.MessageText, msg)
		cancel()
	}
}
