package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udefuse/backend/internal"
)

func TestRegistryRosterBroadcast(t *testing.T) {
	reg := NewRegistry(testLogger())

	a, aConn := newTestClient("alice", "alice")
	a.ConnectedAt = time.Now()
	reg.Register(a)

	b, _ := newTestClient("bob", "bob")
	b.ConnectedAt = a.ConnectedAt.Add(time.Second)
	reg.Register(b)

	var roster internal.RosterData
	require.True(t, aConn.lastOfType(t, internal.EvtPlayersUpdate, &roster))
	assert.Equal(t, 2, roster.TotalPlayers)
	require.Len(t, roster.ConnectedPlayers, 2)
	assert.Equal(t, "alice", roster.ConnectedPlayers[0].UserID)
	assert.Equal(t, "bob", roster.ConnectedPlayers[1].UserID)
}

func TestRegistryReplacesStaleSession(t *testing.T) {
	reg := NewRegistry(testLogger())

	old, _ := newTestClient("alice", "alice")
	old.ConnectedAt = time.Now()
	reg.Register(old)

	fresh := &internal.Client{
		Identity:    internal.Identity{UserID: "alice", Username: "alice"},
		SessionID:   "session-alice-2",
		ConnectedAt: old.ConnectedAt.Add(time.Second),
		Conn:        &recorderConn{},
	}
	reg.Register(fresh)

	clients := reg.List()
	require.Len(t, clients, 1)
	assert.Equal(t, "session-alice-2", clients[0].SessionID)
	assert.Nil(t, reg.Get(old.SessionID))
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry(testLogger())

	a, _ := newTestClient("alice", "alice")
	reg.Register(a)

	removed := reg.Unregister(a.SessionID)
	require.NotNil(t, removed)
	assert.Equal(t, "alice", removed.UserID)
	assert.Empty(t, reg.List())

	assert.Nil(t, reg.Unregister(a.SessionID))
}

func TestRegistryDelayedRosterToNewcomer(t *testing.T) {
	reg := NewRegistry(testLogger())

	a, aConn := newTestClient("alice", "alice")
	a.ConnectedAt = time.Now()
	reg.Register(a)

	require.Eventually(t, func() bool {
		var roster internal.RosterData
		return aConn.lastOfType(t, internal.EvtPlayersUpdate, &roster) && roster.TotalPlayers == 1
	}, time.Second, 10*time.Millisecond)
}
