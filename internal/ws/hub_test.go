package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func testClient(tenantID string) *Client {
	return &Client{
		send:     make(chan []byte, clientSendBuffer),
		TenantID: tenantID,
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func recvPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestHubBroadcastScopedToTenant(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	alpha := testClient("tenant-alpha")
	beta := testClient("tenant-beta")
	h.Register(alpha)
	h.Register(beta)
	waitForCount(t, h, 2)

	h.BroadcastEvent(EventTenantReady, "tenant-alpha", json.RawMessage(`{"slug":"alpha"}`))

	var evt Event
	if err := json.Unmarshal(recvPayload(t, alpha), &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if evt.Type != EventTenantReady {
		t.Errorf("type = %q, want %q", evt.Type, EventTenantReady)
	}
	if evt.ID != 1 {
		t.Errorf("id = %d, want 1", evt.ID)
	}

	select {
	case msg := <-beta.send:
		t.Fatalf("other tenant received event: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEventIDsMonotonicPerTenant(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := testClient("tenant-seq")
	h.Register(c)
	waitForCount(t, h, 1)

	h.BroadcastEvent(EventTenantProvisioning, "tenant-seq", nil)
	h.BroadcastEvent(EventTenantReady, "tenant-seq", nil)
	h.BroadcastEvent(EventTenantReady, "tenant-other", nil)

	var first, second Event
	if err := json.Unmarshal(recvPayload(t, c), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal(recvPayload(t, c), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}
	// The other tenant's counter is independent.
	if got := h.replay.oldest("tenant-other"); got != 1 {
		t.Errorf("other tenant oldest id = %d, want 1", got)
	}
}

func TestHubDropsOversizedPayload(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := testClient("tenant-big")
	h.Register(c)
	waitForCount(t, h, 1)

	big := make(json.RawMessage, maxEventPayload+1)
	h.BroadcastEvent(EventTenantReady, "tenant-big", big)

	select {
	case msg := <-c.send:
		t.Fatalf("oversized payload was delivered: %d bytes", len(msg))
	case <-time.After(50 * time.Millisecond):
	}
	if got := h.replay.oldest("tenant-big"); got != 0 {
		t.Errorf("oversized payload was buffered, oldest id = %d", got)
	}
}

func TestHubPerTenantCap(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	for i := 0; i < maxClientsPerTenant; i++ {
		h.Register(testClient("tenant-full"))
	}
	waitForCount(t, h, maxClientsPerTenant)

	extra := testClient("tenant-full")
	h.Register(extra)

	// The rejected client's send channel is closed instead of admitted.
	select {
	case _, ok := <-extra.send:
		if ok {
			t.Fatal("rejected client received a payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rejected client's send channel was not closed")
	}
	if got := h.ClientCount(); got != maxClientsPerTenant {
		t.Errorf("client count = %d, want %d", got, maxClientsPerTenant)
	}
}

func TestReplayEvents(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())

	for i := 0; i < 5; i++ {
		evt := Event{Type: EventTenantReady, TenantID: "tenant-r", Time: time.Now()}
		h.replay.append("tenant-r", &evt)
	}

	c := testClient("tenant-r")
	if ok := h.ReplayEvents(c, 3); !ok {
		t.Fatal("replay from id 3 should succeed")
	}

	var got []uint64
	for len(c.send) > 0 {
		var evt Event
		if err := json.Unmarshal(<-c.send, &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, evt.ID)
	}
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("replayed ids = %v, want [4 5]", got)
	}
	h.replay.stopSweep()
}

func TestReplayTooOldRequestsReset(t *testing.T) {
	t.Parallel()

	h := NewHub(testLogger())

	b := newReplayBuffer(3, time.Hour)
	defer b.stopSweep()
	h.replay.stopSweep()
	h.replay = b

	for i := 0; i < 6; i++ {
		evt := Event{Type: EventTenantReady, TenantID: "tenant-o", Time: time.Now()}
		b.append("tenant-o", &evt)
	}

	// Buffer holds ids 4..6; a client at id 2 missed events for good.
	if b.oldest("tenant-o") != 4 {
		t.Fatalf("oldest = %d, want 4", b.oldest("tenant-o"))
	}
	if ok := h.ReplayEvents(testClient("tenant-o"), 2); ok {
		t.Error("replay of an aged-out id should report failure")
	}
}

func TestReplayBufferTrimsByLength(t *testing.T) {
	t.Parallel()

	b := newReplayBuffer(2, time.Hour)
	defer b.stopSweep()

	for i := 0; i < 4; i++ {
		evt := Event{TenantID: "t", Time: time.Now()}
		b.append("t", &evt)
	}

	events := b.since("t", 0)
	if len(events) != 2 {
		t.Fatalf("buffered events = %d, want 2", len(events))
	}
	if events[0].ID != 3 || events[1].ID != 4 {
		t.Errorf("ids = %d, %d, want 3, 4", events[0].ID, events[1].ID)
	}
}

func TestReplayBufferSweepDropsIdleTenants(t *testing.T) {
	t.Parallel()

	b := newReplayBuffer(10, 10*time.Millisecond)
	defer b.stopSweep()

	evt := Event{TenantID: "idle", Time: time.Now().Add(-time.Second)}
	b.append("idle", &evt)

	b.sweep()

	if got := b.oldest("idle"); got != 0 {
		t.Errorf("idle tenant still buffered, oldest id = %d", got)
	}
}
