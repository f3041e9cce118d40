// Package realtime pushes change notifications to connected back-office clients. Every tenant has
// one room; a write in one browser tells the others which resource to refetch.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Publisher forwards tenant events to the other instances.
type Publisher interface {
	PublishTenantEvent(tenantID uuid.UUID, event string, payload []byte) error
}

// Subscriber receives tenant events published by other instances.
type Subscriber interface {
	SubscribeTenant(tenantID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains tenant_id -> set of connections. Broadcasts are local; the Redis bridge carries
// them to other instances.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its tenant room. The first client of a tenant starts the Redis subscription.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.TenantID] == nil {
		h.rooms[c.TenantID] = make(map[string]*Client)
		if h.sub != nil {
			tenantID := c.TenantID
			cancel, err := h.sub.SubscribeTenant(tenantID, func(event string, payload []byte) {
				h.Broadcast(tenantID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("tenant subscription failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			} else {
				h.subs[tenantID] = cancel
			}
		}
	}
	h.rooms[c.TenantID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("tenant_id", c.TenantID.String()))
}

// Unregister removes a client. The last client of a tenant cancels the Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.TenantID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.TenantID)
			if cancel, ok := h.subs[c.TenantID]; ok {
				cancel()
				delete(h.subs, c.TenantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("tenant_id", c.TenantID.String()))
}

// Broadcast sends to the tenant's local clients. A client with a full buffer misses the message.
func (h *Hub) Broadcast(tenantID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("broadcast payload", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[tenantID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Notify delivers an event to every instance. With a publisher the Redis subscription performs the
// broadcast, so local clients receive it once; without one it broadcasts locally.
func (h *Hub) Notify(tenantID uuid.UUID, event string, payload interface{}) {
	if h.pub == nil {
		h.Broadcast(tenantID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("notify payload", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.pub.PublishTenantEvent(tenantID, event, data); err != nil {
		h.logger.Warn("publish tenant event failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		h.Broadcast(tenantID, event, json.RawMessage(data))
	}
}

// ClientCount returns the number of connected clients of a tenant.
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}
