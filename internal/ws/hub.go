// Package ws streams tenant lifecycle events to org members over
// WebSocket connections. Events are scoped per tenant, numbered per
// tenant and buffered briefly for replay on reconnect.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/metrics"
)

const (
	eventQueueBuffer = 256
	registerBuffer   = 64

	maxClients          = 1000
	maxClientsPerTenant = 50

	// maxEventPayload caps the data portion of a broadcast. Lifecycle
	// events are small; anything larger indicates a caller bug.
	maxEventPayload = 4096

	drainTimeout = 3 * time.Second
)

// outbound is a serialized event on its way through the Run loop.
type outbound struct {
	tenantID string
	payload  []byte
}

// Hub owns all connected clients. The clients map and the per-tenant
// counters are touched only by the Run goroutine; everything else talks
// to Run through channels.
type Hub struct {
	clients    map[*Client]struct{}
	perTenant  map[string]int
	register   chan *Client
	unregister chan *Client
	events     chan outbound
	count      atomic.Int64
	log        *logrus.Logger
	replay     *replayBuffer
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		perTenant:  make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		events:     make(chan outbound, eventQueueBuffer),
		log:        log,
		replay:     newReplayBuffer(replayMaxLen, replayMaxAge),
	}
}

// Run is the hub event loop. It exits, after draining connected clients,
// when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.replay.stopSweep()

	for {
		select {
		case <-ctx.Done():
			h.drain()

			return
		case c := <-h.register:
			h.admit(c)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.evict(c)
			}
			h.syncGauge()
		case out := <-h.events:
			h.fanOut(out)
			h.syncGauge()
		}
	}
}

// admit adds a client unless a connection cap is hit.
func (h *Hub) admit(c *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("connection cap reached, rejecting client")
		c.closeSend()

		return
	}
	if h.perTenant[c.TenantID] >= maxClientsPerTenant {
		h.log.WithField("tenant_id", c.TenantID).Warn("tenant connection cap reached, rejecting client")
		c.closeSend()

		return
	}

	h.clients[c] = struct{}{}
	h.perTenant[c.TenantID]++
	h.syncGauge()
	h.log.WithFields(logrus.Fields{"tenant_id": c.TenantID, "total": len(h.clients)}).Info("client connected")
}

// evict removes a client and closes its send channel. Run-goroutine only.
func (h *Hub) evict(c *Client) {
	delete(h.clients, c)
	c.closeSend()
	if h.perTenant[c.TenantID]--; h.perTenant[c.TenantID] <= 0 {
		delete(h.perTenant, c.TenantID)
	}
}

// fanOut delivers a payload to every client of the tenant. A client whose
// send buffer is full is evicted rather than allowed to stall the loop.
func (h *Hub) fanOut(out outbound) {
	for c := range h.clients {
		if c.TenantID != out.tenantID {
			continue
		}
		select {
		case c.send <- out.payload:
		default:
			h.evict(c)
		}
	}
}

func (h *Hub) syncGauge() {
	n := len(h.clients)
	h.count.Store(int64(n))
	metrics.WSConnections.Set(float64(n))
}

// Register hands a client to the Run loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register queue full, rejecting client")
		c.closeSend()
	}
}

// Unregister removes a client from the Run loop. Safe to call after Run
// has exited.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run already drained this client.
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent numbers the event, buffers it for replay and queues it
// for delivery to the tenant's clients. Oversized payloads are dropped.
func (h *Hub) BroadcastEvent(eventType, tenantID string, data json.RawMessage) {
	if len(data) > maxEventPayload {
		h.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"type":      eventType,
			"size":      len(data),
		}).Warn("dropping oversized event payload")

		return
	}

	evt := Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
		Time:     time.Now(),
	}
	h.replay.append(tenantID, &evt)

	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")

		return
	}

	select {
	case h.events <- outbound{tenantID: tenantID, payload: payload}:
	default:
		h.log.WithField("tenant_id", tenantID).Warn("event queue full, dropping event")
	}
}

// ReplayEvents pushes buffered events after lastEventID to the client.
// It returns false when the requested ID has already aged out of the
// buffer, in which case the client must do a full refresh.
func (h *Hub) ReplayEvents(c *Client, lastEventID uint64) bool {
	oldest := h.replay.oldest(c.TenantID)
	if lastEventID > 0 && oldest > 0 && lastEventID < oldest {
		return false
	}

	for _, evt := range h.replay.since(c.TenantID, lastEventID) {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Send buffer full; the client is already behind on live
			// events, stop replaying into it.
			return true
		}
	}

	return true
}

// drain notifies every client the server is going away, waits for send
// buffers to flush and then closes everything.
func (h *Hub) drain() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	notice := []byte(`{"type":"shutdown","reason":"server shutting down"}`)
	for c := range h.clients {
		select {
		case c.send <- notice:
		default:
		}
	}

	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) && h.pendingSends() {
		time.Sleep(50 * time.Millisecond)
	}
	if h.pendingSends() {
		h.log.Warn("drain timeout, closing remaining clients")
	}

	for c := range h.clients {
		h.evict(c)
	}
	h.syncGauge()
}

func (h *Hub) pendingSends() bool {
	for c := range h.clients {
		if len(c.send) > 0 {
			return true
		}
	}

	return false
}
