package ws

import (
	"sync"
	"time"
)

const (
	replayMaxLen = 1000
	replayMaxAge = 1 * time.Hour

	sweepInterval = 10 * time.Minute
)

// tenantLog holds one tenant's recent events together with the sequence
// counter that numbers them. Keeping both under the same lock means an
// event's ID and its buffer position can never disagree.
type tenantLog struct {
	seq    uint64
	events []Event
}

// replayBuffer retains recent events per tenant so reconnecting clients
// can catch up instead of refetching everything.
type replayBuffer struct {
	mu      sync.Mutex
	tenants map[string]*tenantLog
	maxLen  int
	maxAge  time.Duration
	stop    chan struct{}
}

func newReplayBuffer(maxLen int, maxAge time.Duration) *replayBuffer {
	b := &replayBuffer{
		tenants: make(map[string]*tenantLog),
		maxLen:  maxLen,
		maxAge:  maxAge,
		stop:    make(chan struct{}),
	}
	go b.sweepLoop()

	return b
}

func (b *replayBuffer) stopSweep() {
	close(b.stop)
}

func (b *replayBuffer) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

// sweep drops tenants whose newest event has aged out entirely. Sequence
// counters go with them; a tenant quiet for maxAge restarts from 1, which
// is safe because any client that old gets a reset on reconnect anyway.
func (b *replayBuffer) sweep() {
	cutoff := time.Now().Add(-b.maxAge)

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, tl := range b.tenants {
		if len(tl.events) == 0 || tl.events[len(tl.events)-1].Time.Before(cutoff) {
			delete(b.tenants, id)
		}
	}
}

// append assigns the event's sequence ID, stores it for replay and trims
// the tenant's log by age and length.
func (b *replayBuffer) append(tenantID string, evt *Event) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	tl := b.tenants[tenantID]
	if tl == nil {
		tl = &tenantLog{}
		b.tenants[tenantID] = tl
	}

	tl.seq++
	evt.ID = tl.seq

	cutoff := time.Now().Add(-b.maxAge)
	stale := 0
	for stale < len(tl.events) && tl.events[stale].Time.Before(cutoff) {
		stale++
	}
	tl.events = append(tl.events[stale:], *evt)
	if len(tl.events) > b.maxLen {
		tl.events = tl.events[len(tl.events)-b.maxLen:]
	}

	return evt.ID
}

// since returns the tenant's buffered events with ID greater than after.
// The returned slice is a copy; callers may use it outside the lock.
func (b *replayBuffer) since(tenantID string, after uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	tl := b.tenants[tenantID]
	if tl == nil || len(tl.events) == 0 {
		return nil
	}

	// Events are ID-ordered, so binary search for the first one past after.
	lo, hi := 0, len(tl.events)
	for lo < hi {
		mid := (lo + hi) / 2
		if tl.events[mid].ID <= after {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == len(tl.events) {
		return nil
	}

	out := make([]Event, len(tl.events)-lo)
	copy(out, tl.events[lo:])

	return out
}

// oldest returns the smallest buffered event ID for a tenant, or 0 when
// nothing is buffered.
func (b *replayBuffer) oldest(tenantID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	tl := b.tenants[tenantID]
	if tl == nil || len(tl.events) == 0 {
		return 0
	}

	return tl.events[0].ID
}
