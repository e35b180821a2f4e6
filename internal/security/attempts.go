// Package security provides in-process protections around the
// second-factor verification path.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// AttemptMaxFailures is how many failed verifications lock a user out.
	AttemptMaxFailures = 5
	// AttemptWindow is the tracking window for counting failures.
	AttemptWindow = 15 * time.Minute
	// AttemptLockout is how long a locked user stays blocked.
	AttemptLockout = 5 * time.Minute

	attemptCleanup    = 60 * time.Second
	attemptMaxRecords = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// AttemptGuard tracks failed TOTP verifications per user and blocks users
// that exceed the failure threshold within the tracking window. Six-digit
// codes are guessable; the lockout makes the odds irrelevant.
type AttemptGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
}

// NewAttemptGuard creates a guard and starts a background cleanup
// goroutine that stops when ctx is cancelled.
func NewAttemptGuard(ctx context.Context, log *logrus.Logger) *AttemptGuard {
	g := &AttemptGuard{
		records: make(map[string]*failureRecord),
		log:     log,
	}
	go g.cleanupLoop(ctx)
	return g
}

func subjectHash(subject string) string {
	h := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(h[:])
}

// IsBlocked reports whether the subject is currently locked out.
func (g *AttemptGuard) IsBlocked(subject string) bool {
	kh := subjectHash(subject)
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && time.Since(rec.lockedAt) < AttemptLockout
}

// RecordFailure records one failed verification for the subject.
func (g *AttemptGuard) RecordFailure(subject string) {
	kh := subjectHash(subject)
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok {
		g.records[kh] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	// Reset if outside the tracking window.
	if now.Sub(rec.firstFail) > AttemptWindow {
		rec.attempts = 1
		rec.firstFail = now
		rec.lockedAt = time.Time{}
		return
	}

	rec.attempts++
	if rec.attempts >= AttemptMaxFailures {
		rec.lockedAt = now
		g.log.WithField("subject_hash", kh[:16]+"...").Warn("second factor locked out after repeated failures")
	}
}

// Reset clears failure tracking for a subject. Call on success.
func (g *AttemptGuard) Reset(subject string) {
	kh := subjectHash(subject)
	g.mu.Lock()
	delete(g.records, kh)
	g.mu.Unlock()
}

func (g *AttemptGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(attemptCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			g.mu.Lock()
			for k, rec := range g.records {
				if !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= AttemptLockout {
					delete(g.records, k)
				} else if now.Sub(rec.firstFail) >= AttemptWindow {
					delete(g.records, k)
				}
			}
			if len(g.records) > attemptMaxRecords {
				g.evictOldest(len(g.records) - attemptMaxRecords)
			}
			g.mu.Unlock()
		}
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *AttemptGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}
	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}
	for range n {
		oldestIdx := 0
		for i := 1; i < len(entries); i++ {
			if entries[i].time.Before(entries[oldestIdx].time) {
				oldestIdx = i
			}
		}
		delete(g.records, entries[oldestIdx].key)
		entries[oldestIdx] = entries[len(entries)-1]
		entries = entries[:len(entries)-1]
	}
}
