package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hejmattias/kolsync/models"
)

type WSClient struct {
	DeviceID string
	Conn     *websocket.Conn

	mu sync.Mutex // serializes writes to the connection
}

func (c *WSClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, msg)
}

// NotifyHub fans change payloads out to every device holding a change
// feed socket open, except the device that caused the change.
type NotifyHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewNotifyHub() *NotifyHub {
	return &NotifyHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *NotifyHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.DeviceID] == nil {
		h.clients[c.DeviceID] = make(map[*WSClient]struct{})
	}
	h.clients[c.DeviceID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *NotifyHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.DeviceID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.DeviceID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

func (h *NotifyHub) Broadcast(payload models.ChangePayload, excludeDevice string) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for deviceID, set := range h.clients {
		if deviceID == excludeDevice {
			continue
		}
		for c := range set {
			_ = c.write(msg)
		}
	}
}
