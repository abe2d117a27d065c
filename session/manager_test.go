package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchCreatesAndUpdatesEntry(t *testing.T) {
	m := NewManager(Config{SweepInterval: time.Hour})
	defer m.Close()

	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}
	m.Touch("sess-1", addr)

	e, ok := m.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", e.SessionID)
	assert.Equal(t, addr, e.PeerAddr)
	assert.WithinDuration(t, time.Now(), e.LastSeen, time.Second)
}

func TestRemoveDropsEntry(t *testing.T) {
	m := NewManager(Config{SweepInterval: time.Hour})
	defer m.Close()

	m.Touch("sess-1", &net.UDPAddr{})
	m.Remove("sess-1")

	_, ok := m.Get("sess-1")
	assert.False(t, ok)
}

func TestEvictInactiveSweepsStaleEntries(t *testing.T) {
	m := NewManager(Config{SweepInterval: time.Hour, InactivityThreshold: 50 * time.Millisecond})
	defer m.Close()

	m.Touch("stale", &net.UDPAddr{})
	m.entries["stale"].LastSeen = time.Now().Add(-time.Hour)

	m.evictInactive()

	assert.Equal(t, 0, m.Count())
}

func TestMustCleanupSignalsAfterConfiguredCycles(t *testing.T) {
	m := NewManager(Config{SweepInterval: time.Hour, CleanupEvery: 2})
	defer m.Close()

	assert.False(t, m.MustCleanup())

	m.cycleCount = 1
	m.evictInactive()
	m.cycleCount++
	if m.cycleCount >= m.config.CleanupEvery {
		m.cycleCount = 0
		m.mustCleanup.Store(true)
	}

	assert.True(t, m.MustCleanup())
	assert.False(t, m.MustCleanup(), "must_cleanup should reset after being read")
}

func TestAllReturnsEveryLiveEntry(t *testing.T) {
	m := NewManager(Config{SweepInterval: time.Hour})
	defer m.Close()

	m.Touch("a", &net.UDPAddr{})
	m.Touch("b", &net.UDPAddr{})

	assert.Len(t, m.All(), 2)
}
