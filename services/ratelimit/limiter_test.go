package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(limit, window, zap.NewNop())
	l.now = clock.now
	return l, clock
}

func TestAdmit_WithinQuota(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	assert.True(t, l.Admit("client-a"))
	assert.True(t, l.Admit("client-a"))
	assert.True(t, l.Admit("client-a"))
}

func TestAdmit_RejectsFourthInWindow(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Admit("client-a"))
	}
	assert.False(t, l.Admit("client-a"))

	// Past the window the identity is admitted again.
	clock.advance(61 * time.Second)
	assert.True(t, l.Admit("client-a"))
}

func TestAdmit_RejectionRecordsNothing(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	assert.True(t, l.Admit("client-a"))
	assert.True(t, l.Admit("client-a"))

	// Hammering while over quota must not extend the window.
	for i := 0; i < 10; i++ {
		assert.False(t, l.Admit("client-a"))
		clock.advance(time.Second)
	}

	clock.advance(51 * time.Second) // first admit now 61s old
	assert.True(t, l.Admit("client-a"))
}

func TestAdmit_IdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Admit("client-a"))
	assert.False(t, l.Admit("client-a"))
	assert.True(t, l.Admit("client-b"))
}

func TestAdmit_SlidingNotFixedWindow(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	assert.True(t, l.Admit("client-a")) // t=0
	clock.advance(40 * time.Second)
	assert.True(t, l.Admit("client-a")) // t=40
	clock.advance(10 * time.Second)
	assert.False(t, l.Admit("client-a")) // t=50, both in window

	clock.advance(15 * time.Second)     // t=65, first expired
	assert.True(t, l.Admit("client-a")) // only t=40 remains
}

func TestRemaining(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	assert.Equal(t, 3, l.Remaining("client-a"))
	l.Admit("client-a")
	l.Admit("client-a")
	assert.Equal(t, 1, l.Remaining("client-a"))
	l.Admit("client-a")
	assert.Equal(t, 0, l.Remaining("client-a"))

	clock.advance(61 * time.Second)
	assert.Equal(t, 3, l.Remaining("client-a"))
}

func TestCleanup_DropsIdleIdentities(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	l.Admit("idle-client")
	l.Admit("active-client")
	clock.advance(2 * time.Minute)
	l.Admit("active-client")

	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.history, "idle-client")
	assert.Contains(t, l.history, "active-client")
}
