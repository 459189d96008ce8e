package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(limit int, period time.Duration) (*FixedWindowStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewFixedWindowStore(limit, period)
	s.now = clock.now
	return s, clock
}

func TestFixedWindowStore_Limit(t *testing.T) {
	s, _ := newTestStore(100, 15*time.Minute)

	for i := 0; i < 100; i++ {
		ok, err := s.Allow("10.0.0.1")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := s.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok, "101st request in the window is rejected")
	assert.Zero(t, s.Remaining("10.0.0.1"))

	ok, _ = s.Allow("10.0.0.2")
	assert.True(t, ok, "limits are per identifier")
}

func TestFixedWindowStore_WindowReset(t *testing.T) {
	s, clock := newTestStore(2, time.Minute)

	s.Allow("a")
	s.Allow("a")
	ok, _ := s.Allow("a")
	assert.False(t, ok)

	clock.advance(59 * time.Second)
	ok, _ = s.Allow("a")
	assert.False(t, ok, "still inside the window")

	clock.advance(time.Second)
	ok, _ = s.Allow("a")
	assert.True(t, ok, "a new window starts")
	assert.Equal(t, 1, s.Remaining("a"))
}

func TestFixedWindowStore_Sweep(t *testing.T) {
	s, clock := newTestStore(1, time.Minute)

	s.Allow("a")
	s.Allow("b")
	assert.Len(t, s.clients, 2)

	clock.advance(2 * time.Minute)
	s.Allow("c")
	assert.Len(t, s.clients, 1)
}
