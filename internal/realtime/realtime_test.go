package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcentered/backend/internal/middleware"
	"github.com/commandcentered/backend/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	tenant []uuid.UUID
	events []string
	data   []interface{}
}

func (r *recorder) Notify(tenantID uuid.UUID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenant = append(r.tenant, tenantID)
	r.events = append(r.events, event)
	r.data = append(r.data, payload)
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "events", ResourceOf("/events/42/shifts"))
	assert.Equal(t, "gear", ResourceOf("/gear"))
	assert.Equal(t, "", ResourceOf("/"))
}

func TestInvalidateOnWrite(t *testing.T) {
	tenantID := uuid.New()
	rec := &recorder{}
	r := testutil.Router(tenantID)
	r.Use(InvalidateOnWrite(rec))
	r.GET("/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/events", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.PATCH("/events/:id", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.DELETE("/gear/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	testutil.Do(r, http.MethodGet, "/events", nil)
	testutil.Do(r, http.MethodPost, "/events", map[string]string{})
	testutil.Do(r, http.MethodPatch, "/events/1", map[string]string{})
	testutil.Do(r, http.MethodDelete, "/gear/7", nil)

	require.Len(t, rec.events, 2, "reads and failed writes do not notify")
	assert.Equal(t, []uuid.UUID{tenantID, tenantID}, rec.tenant)
	assert.Equal(t, Invalidation{Resource: "events", Method: http.MethodPost, Path: "/events"}, rec.data[0])
	assert.Equal(t, Invalidation{Resource: "gear", Method: http.MethodDelete, Path: "/gear/7"}, rec.data[1])
}

func TestInvalidateWithoutTenantIsSilent(t *testing.T) {
	rec := &recorder{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(InvalidateOnWrite(rec))
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	testutil.Do(r, http.MethodPost, "/auth/login", map[string]string{})
	assert.Empty(t, rec.events)
}

type fakeBus struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]func(string, []byte)
	cancels  int
	err      error
}

func newFakeBus() *fakeBus { return &fakeBus{handlers: map[uuid.UUID]func(string, []byte){}} }

func (b *fakeBus) PublishTenantEvent(tenantID uuid.UUID, event string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	h := b.handlers[tenantID]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (b *fakeBus) SubscribeTenant(tenantID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[tenantID] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, tenantID)
		b.cancels++
	}, nil
}

func localClient(h *Hub, tenantID uuid.UUID) *Client {
	c := &Client{ID: uuid.NewString(), TenantID: tenantID, hub: h, send: make(chan WSMessage, 4)}
	h.Register(c)
	return c
}

func TestHubRoomsAreTenantScoped(t *testing.T) {
	bus := newFakeBus()
	h := NewHub(nil, bus, bus)
	a, b := uuid.New(), uuid.New()
	ca := localClient(h, a)
	cb := localClient(h, b)

	h.Notify(a, EventInvalidate, Invalidation{Resource: "events"})

	require.Len(t, ca.send, 1)
	assert.Empty(t, cb.send)
	msg := <-ca.send
	assert.Equal(t, EventInvalidate, msg.Event)
	var inv Invalidation
	require.NoError(t, json.Unmarshal(msg.Data, &inv))
	assert.Equal(t, "events", inv.Resource)

	h.Unregister(ca)
	assert.Equal(t, 0, h.ClientCount(a))
	assert.Equal(t, 1, bus.cancels)
	_, open := <-ca.send
	assert.False(t, open)
}

func TestHubFallsBackToLocalBroadcast(t *testing.T) {
	bus := newFakeBus()
	bus.err = errors.New("redis down")
	h := NewHub(nil, bus, bus)
	tenantID := uuid.New()
	c := localClient(h, tenantID)

	h.Notify(tenantID, EventInvalidate, Invalidation{Resource: "gear"})
	assert.Len(t, c.send, 1)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(nil, nil, nil)
	tenantID := uuid.New()
	c := localClient(h, tenantID)
	for i := 0; i < cap(c.send)+3; i++ {
		h.Broadcast(tenantID, "x", map[string]int{"i": i})
	}
	assert.Len(t, c.send, cap(c.send))
}

type tokenAuth map[string]middleware.Identity

func (a tokenAuth) Authenticate(token string) (middleware.Identity, error) {
	id, ok := a[token]
	if !ok {
		return middleware.Identity{}, errors.New("bad token")
	}
	return id, nil
}

func TestServeWsDeliversInvalidations(t *testing.T) {
	tenantID := uuid.New()
	h := NewHub(nil, nil, nil)
	auth := tokenAuth{"good": {UserID: uuid.New(), TenantID: tenantID}}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", ServeWs(h, auth, nil, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount(tenantID) == 1 }, time.Second, 10*time.Millisecond)

	h.Notify(tenantID, EventInvalidate, Invalidation{Resource: "shifts", Method: http.MethodPost, Path: "/shifts"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventInvalidate, msg.Event)
	assert.JSONEq(t, `{"resource":"shifts","method":"POST","path":"/shifts"}`, string(msg.Data))

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Event)
}
