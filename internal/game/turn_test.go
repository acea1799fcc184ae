package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udefuse/backend/internal"
)

func TestPassTurnAwardsPointsAndAdvances(t *testing.T) {
	hub, fs, clients, conns, roundID := startedRoom(t, 2)

	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))

	assert.Equal(t, internal.PassPoints, fs.record(roundID, "alice").Score)

	var turn internal.TurnChangedData
	require.True(t, conns[1].lastOfType(t, internal.EvtTurnChanged, &turn))
	assert.Equal(t, 1, turn.CurrentTurn)
	assert.Equal(t, "bob", turn.NextPlayer.UserID)

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	assert.Equal(t, "bob", room.CurrentTurnID)
	room.Mu.Unlock()
}

func TestPassTurnRejectsOutOfTurn(t *testing.T) {
	hub, _, clients, _, roundID := startedRoom(t, 2)

	assert.ErrorIs(t, hub.PassTurn(context.Background(), clients[1], roundID), internal.ErrNotYourTurn)
}

func TestPassTurnRejectsStaleRound(t *testing.T) {
	hub, _, clients, _, roundID := startedRoom(t, 2)

	assert.ErrorIs(t, hub.PassTurn(context.Background(), clients[0], roundID+1), internal.ErrNoActiveRound)
}

func TestTurnSkipsEliminatedPlayers(t *testing.T) {
	hub, fs, clients, _, roundID := startedRoom(t, 3)

	_, err := fs.EliminatePlayer(context.Background(), roundID, "bob")
	require.NoError(t, err)

	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	assert.Equal(t, "carol", room.CurrentTurnID)
	room.Mu.Unlock()
}

func TestTurnSkipsDisconnectedPlayers(t *testing.T) {
	hub, _, clients, _, roundID := startedRoom(t, 3)

	hub.Disconnect(clients[1])

	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	assert.Equal(t, "carol", room.CurrentTurnID)
	room.Mu.Unlock()
}

func TestTurnWrapsAround(t *testing.T) {
	hub, _, clients, _, roundID := startedRoom(t, 2)

	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))
	require.NoError(t, hub.PassTurn(context.Background(), clients[1], roundID))

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	assert.Equal(t, "alice", room.CurrentTurnID)
	room.Mu.Unlock()
}

// When a pass leaves nobody able to take the turn, the round-end check runs
// instead of leaving a stuck pointer.
func TestPassTurnEndsRoundWhenNoEligiblePlayer(t *testing.T) {
	hub, fs, clients, conns, roundID := startedRoom(t, 2)

	_, err := fs.EliminatePlayer(context.Background(), roundID, "bob")
	require.NoError(t, err)

	// The passer drops right as they pass, leaving no eligible slot.
	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	room.Members[0].Disconnected = true
	room.Mu.Unlock()

	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))

	var ended internal.GameEndedData
	require.True(t, conns[1].lastOfType(t, internal.EvtGameEnded, &ended))
	assert.Equal(t, "alice", ended.Winner.ID)

	room.Mu.Lock()
	assert.False(t, room.RoundActive)
	room.Mu.Unlock()
}

func TestMidRoundDisconnectKeepsSeat(t *testing.T) {
	hub, _, clients, conns, _ := startedRoom(t, 2)

	hub.Disconnect(clients[1])

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	require.Len(t, room.Members, 2)
	assert.True(t, room.Members[1].Disconnected)
	room.Mu.Unlock()

	var gone internal.PresenceData
	require.True(t, conns[0].lastOfType(t, internal.EvtPlayerDisconnected, &gone))
	assert.Equal(t, "bob", gone.PlayerID)
}
