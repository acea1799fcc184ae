package game

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udefuse/backend/internal"
)

// Mid-round drop and rejoin: the seat clears its disconnected flag and every
// member receives a merged snapshot carrying the same scores and turn as
// before the drop.
func TestRejoinMidRoundSyncsState(t *testing.T) {
	hub, _, clients, conns, roundID := startedRoom(t, 2)

	// Give the round some history first.
	require.NoError(t, hub.PassTurn(context.Background(), clients[0], roundID))

	hub.Disconnect(clients[1])

	fresh, freshConn := newTestClient("bob", "bob")
	fresh.SessionID = "session-bob-2"
	require.NoError(t, hub.Rejoin(context.Background(), fresh, "ABC123"))

	room, _ := hub.room("ABC123")
	room.Mu.Lock()
	m := room.MemberByID("bob")
	require.NotNil(t, m)
	assert.False(t, m.Disconnected)
	assert.Equal(t, "session-bob-2", m.SessionID)
	room.Mu.Unlock()

	assert.True(t, conns[0].hasType(internal.EvtPlayerReconnected))

	var sync internal.GameStateSyncData
	require.True(t, freshConn.lastOfType(t, internal.EvtGameStateSync, &sync))
	assert.Equal(t, roundID, sync.RoundID)
	assert.Equal(t, "ABC123", sync.RoomCode)
	assert.Equal(t, internal.StatusInProgress, sync.Status)
	assert.Equal(t, 1, sync.CurrentTurn)
	require.Len(t, sync.Players, 2)
	assert.Equal(t, internal.PassPoints, sync.Players[0].Score)
	assert.False(t, sync.Players[1].Disconnected)
}

// Reconciling twice against unchanged state must produce identical frames.
func TestReconcileIsIdempotent(t *testing.T) {
	hub, _, clients, conns, _ := startedRoom(t, 2)

	hub.Disconnect(clients[1])

	fresh, _ := newTestClient("bob", "bob")
	fresh.SessionID = "session-bob-2"
	require.NoError(t, hub.Rejoin(context.Background(), fresh, "ABC123"))
	require.NoError(t, hub.Rejoin(context.Background(), fresh, "ABC123"))

	var syncs [][]byte
	for _, frame := range conns[0].all() {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frame, &env))
		if env.Type == internal.EvtGameStateSync {
			syncs = append(syncs, env.Data)
		}
	}
	require.Len(t, syncs, 2)
	assert.Equal(t, string(syncs[0]), string(syncs[1]))
}

func TestRejoinUnknownIdentity(t *testing.T) {
	hub, _, _, _, _ := startedRoom(t, 2)

	stranger, _ := newTestClient("mallory", "mallory")
	assert.ErrorIs(t, hub.Rejoin(context.Background(), stranger, "ABC123"), internal.ErrPlayerNotFound)
}

// When the round ended while the player was away, rejoin replays the end
// screen with the winner and final scores, never a stale mid-game view.
func TestRejoinAfterRoundEnded(t *testing.T) {
	hub, fs, clients, _, roundID := startedRoom(t, 2)
	fs.setRescues(roundID, "alice", 0)

	hub.Disconnect(clients[1])

	scan(t, hub, clients[0], roundID)
	require.NoError(t, hub.AnswerQuiz(context.Background(), clients[0], internal.AnswerRequest{
		RoundID: roundID, QuestionID: 1, Answer: "Lyon", TimeTaken: 12,
	}))
	assert.True(t, fs.record(roundID, "alice").Eliminated)

	fresh, freshConn := newTestClient("bob", "bob")
	fresh.SessionID = "session-bob-2"
	require.NoError(t, hub.Rejoin(context.Background(), fresh, "ABC123"))

	var ended internal.GameEndedData
	require.True(t, freshConn.lastOfType(t, internal.EvtGameEnded, &ended))
	assert.Equal(t, "bob", ended.Winner.ID)
	assert.Equal(t, "last_player_standing", ended.Reason)
	require.Len(t, ended.FinalScores, 2)
	assert.False(t, freshConn.hasType(internal.EvtGameStateSync))
}
