package game

import (
	"context"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
)

// playerViews merges the durable records with each member's live
// connectivity flag, ordered by turn slot. Caller holds room.Mu.
func (h *Hub) playerViews(ctx context.Context, room *internal.Room) ([]internal.PlayerView, error) {
	records, err := h.store.ListPlayerRecords(ctx, room.RoundID)
	if err != nil {
		return nil, err
	}
	views := make([]internal.PlayerView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View(room.IsDisconnected(rec.UserID)))
	}
	return views, nil
}

// reconcile replays the authoritative round state to every connected member.
// Running it twice against unchanged state produces identical frames, so a
// flapping connection cannot corrupt anything. Caller holds room.Mu.
func (h *Hub) reconcile(ctx context.Context, room *internal.Room) error {
	round, err := h.store.GetRound(ctx, room.RoundID)
	if err != nil {
		return err
	}

	// A round that ended while the player was away replays the end screen,
	// not a stale mid-game view.
	if round.Status == internal.StatusCompleted {
		return h.replayGameEnded(ctx, room, round)
	}
	if room.RoundActive {
		survivors, err := h.store.CountSurvivors(ctx, room.RoundID)
		if err != nil {
			return err
		}
		if survivors <= 1 {
			return h.endRound(ctx, room)
		}
	}

	views, err := h.playerViews(ctx, room)
	if err != nil {
		return err
	}

	currentSlot := 0
	for _, v := range views {
		if v.UserID == room.CurrentTurnID {
			currentSlot = v.TurnOrder
			break
		}
	}

	h.broadcast(room, internal.EvtGameStateSync, internal.GameStateSyncData{
		RoundID:     room.RoundID,
		RoomCode:    room.Code,
		Players:     views,
		CurrentTurn: currentSlot,
		Status:      round.Status,
	})
	return nil
}

// replayGameEnded rebuilds the final result of an already-completed round
// from the durable records, without touching round state again. Caller holds
// room.Mu.
func (h *Hub) replayGameEnded(ctx context.Context, room *internal.Room, round store.Round) error {
	records, err := h.store.ListPlayerRecords(ctx, room.RoundID)
	if err != nil {
		return err
	}

	win := internal.WinnerData{}
	if round.WinnerID != nil {
		for _, rec := range records {
			if rec.UserID == *round.WinnerID {
				win = internal.WinnerData{ID: rec.UserID, Username: rec.Username, Score: rec.Score}
				break
			}
		}
	}

	views := make([]internal.PlayerView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View(room.IsDisconnected(rec.UserID)))
	}
	h.broadcast(room, internal.EvtGameEnded, internal.GameEndedData{
		Winner:      win,
		Reason:      "last_player_standing",
		FinalScores: views,
	})
	return nil
}
