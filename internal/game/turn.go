package game

import (
	"context"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
)

// nextEligible finds the next record after fromOrder that can take a turn:
// not eliminated and currently connected. Wraps around at most once; returns
// nil when nobody qualifies.
func nextEligible(room *internal.Room, records []store.PlayerRecord, fromOrder int) *store.PlayerRecord {
	n := len(records)
	for step := 1; step <= n; step++ {
		rec := &records[(fromOrder+step)%n]
		if rec.Eliminated || room.IsDisconnected(rec.UserID) {
			continue
		}
		return rec
	}
	return nil
}

// advanceTurn moves the turn pointer to the next eligible player and
// announces it. Caller holds room.Mu. Returns false when no eligible player
// remains.
func (h *Hub) advanceTurn(ctx context.Context, room *internal.Room) (bool, error) {
	records, err := h.store.ListPlayerRecords(ctx, room.RoundID)
	if err != nil {
		return false, err
	}

	current := -1
	for i := range records {
		if records[i].UserID == room.CurrentTurnID {
			current = records[i].TurnOrder
			break
		}
	}

	next := nextEligible(room, records, current)
	if next == nil {
		return false, nil
	}

	room.CurrentTurnID = next.UserID
	h.store.AppendEvent(ctx, room.RoundID, "turn_start", map[string]any{"userId": next.UserID})
	h.broadcast(room, internal.EvtTurnChanged, internal.TurnChangedData{
		CurrentTurn: next.TurnOrder,
		NextPlayer:  next.View(room.IsDisconnected(next.UserID)),
	})
	return true, nil
}

// PassTurn hands the turn to the next player for a small score instead of
// scanning a bomb.
func (h *Hub) PassTurn(ctx context.Context, c *internal.Client, roundID int64) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if !room.RoundActive || room.RoundID != roundID {
		return internal.ErrNoActiveRound
	}
	if room.CurrentTurnID != c.UserID {
		return internal.ErrNotYourTurn
	}
	if room.Pending != nil {
		return internal.ErrNotYourTurn
	}
	if room.PendingElim != nil && room.PendingElim.UserID == c.UserID {
		return internal.ErrEliminationPending
	}

	if err := h.store.AddScore(ctx, room.RoundID, c.UserID, internal.PassPoints); err != nil {
		return err
	}
	h.store.AppendEvent(ctx, room.RoundID, "turn_pass", map[string]any{
		"userId": c.UserID,
		"points": internal.PassPoints,
	})

	views, err := h.playerViews(ctx, room)
	if err != nil {
		return err
	}
	h.broadcast(room, internal.EvtScoreUpdate, internal.ScoreUpdateData{Players: views})

	advanced, err := h.advanceTurn(ctx, room)
	if err != nil {
		return err
	}
	if !advanced {
		// Nobody can take the turn; run the round-end evaluation instead of
		// leaving a stuck pointer.
		survivors, err := h.store.CountSurvivors(ctx, room.RoundID)
		if err != nil {
			return err
		}
		if survivors <= 1 {
			return h.endRound(ctx, room)
		}
		h.log.Warn("no eligible player to take the turn", "room", room.Code)
	}
	return nil
}
