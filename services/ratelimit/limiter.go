package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter enforces a sliding-window request quota per identity. Each
// identity keeps the timestamps of its admitted requests inside the window;
// a request is admitted only while fewer than limit timestamps remain.
// Rejected requests leave no timestamp behind, so a client that keeps
// retrying does not push its own window forward.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	history map[string][]time.Time
}

// NewLimiter creates a limiter admitting up to limit requests per identity
// within each sliding window.
func NewLimiter(limit int, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		logger:  logger,
		history: make(map[string][]time.Time),
	}
}

// Admit records and admits the request when the identity is under its quota,
// and rejects it otherwise.
func (l *Limiter) Admit(identity string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.history[identity]
	// Timestamps are appended in order, so everything before the first
	// in-window entry has expired.
	keep := 0
	for keep < len(stamps) && !stamps[keep].After(cutoff) {
		keep++
	}
	stamps = stamps[keep:]

	if len(stamps) >= l.limit {
		l.history[identity] = stamps
		return false
	}

	l.history[identity] = append(stamps, now)
	return true
}

// Remaining reports the admissions left for the identity in the current
// window, without recording anything.
func (l *Limiter) Remaining(identity string) int {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	active := 0
	for _, ts := range l.history[identity] {
		if ts.After(cutoff) {
			active++
		}
	}
	if active >= l.limit {
		return 0
	}
	return l.limit - active
}

// StartCleanupWorker drops identities whose entire history has expired, so
// one-off clients do not accumulate forever. It runs until the context is
// cancelled.
func (l *Limiter) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}

func (l *Limiter) cleanup() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, stamps := range l.history {
		idle := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.history, identity)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Debug("rate limiter cleanup", zap.Int("identities_removed", removed))
	}
}
