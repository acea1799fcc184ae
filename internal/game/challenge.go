package game

import (
	"context"
	"strings"
	"time"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
)

// ScanBomb starts the current player's quiz challenge. The server arms its
// own expiry timer; a challenge that never gets an answer resolves through
// the same path as a submitted one.
func (h *Hub) ScanBomb(ctx context.Context, c *internal.Client, roundID int64) error {
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

	rec, err := h.store.GetPlayerRecord(ctx, roundID, c.UserID)
	if err != nil {
		return err
	}

	bonus := 0
	if rec.Role == internal.RoleTimekeeper {
		bonus = internal.TimekeeperBonusSeconds
	}

	question, err := h.store.RandomQuestion(ctx, "")
	if err != nil {
		return err
	}

	h.store.AppendEvent(ctx, roundID, "bomb_triggered", map[string]any{
		"userId":     c.UserID,
		"questionId": question.ID,
	})

	total := time.Duration(internal.BaseChallengeSeconds+bonus+internal.ChallengeGraceSeconds) * time.Second
	expiry, cancel := context.WithCancel(context.Background())
	room.Pending = &internal.Challenge{
		UserID:       c.UserID,
		QuestionID:   question.ID,
		TimerSeconds: internal.BaseChallengeSeconds,
		BonusSeconds: bonus,
		IssuedAt:     time.Now(),
		Cancel:       cancel,
	}

	go func() {
		timer := time.NewTimer(total)
		defer timer.Stop()
		select {
		case <-expiry.Done():
		case <-timer.C:
			h.expireChallenge(room.Code, roundID, c.UserID, question.ID)
		}
	}()

	h.broadcast(room, internal.EvtPlayerTriggered, internal.TriggeredData{
		PlayerID:     c.UserID,
		Username:     c.Username,
		TimerSeconds: internal.BaseChallengeSeconds,
	})
	h.sendTo(c, internal.EvtBombQuiz, internal.BombQuizData{
		Question:     question.View(),
		TimerSeconds: internal.BaseChallengeSeconds,
		BonusTime:    bonus,
	})
	return nil
}

// AnswerQuiz resolves the pending challenge with the player's answer.
func (h *Hub) AnswerQuiz(ctx context.Context, c *internal.Client, req internal.AnswerRequest) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	p := room.Pending
	if p == nil || p.UserID != c.UserID || p.QuestionID != req.QuestionID ||
		!room.RoundActive || room.RoundID != req.RoundID {
		return internal.ErrNoPendingChallenge
	}
	p.Cancel()
	room.Pending = nil

	return h.resolveChallenge(ctx, room, c.UserID, req)
}

// expireChallenge fires when the server-side timer outlasts the challenge.
// It resolves an empty answer through resolveChallenge, so expiry and a
// wrong submit take the identical code path.
func (h *Hub) expireChallenge(roomCode string, roundID int64, userID string, questionID int64) {
	room, ok := h.room(roomCode)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	p := room.Pending
	if p == nil || p.UserID != userID || p.QuestionID != questionID || room.RoundID != roundID {
		return
	}
	room.Pending = nil

	h.log.Info("challenge expired", "room", roomCode, "user", userID)
	err := h.resolveChallenge(context.Background(), room, userID, internal.AnswerRequest{
		RoundID:    roundID,
		QuestionID: questionID,
		TimeTaken:  float64(p.TimerSeconds + p.BonusSeconds),
	})
	if err != nil {
		h.log.Error("resolve expired challenge", "room", roomCode, "user", userID, "err", err)
	}
}

// resolveChallenge applies the outcome of an answered or expired challenge.
// Caller holds room.Mu and has already cleared room.Pending.
func (h *Hub) resolveChallenge(ctx context.Context, room *internal.Room, userID string, req internal.AnswerRequest) error {
	rec, err := h.store.GetPlayerRecord(ctx, room.RoundID, userID)
	if err != nil {
		return err
	}
	// An already-eliminated player cannot score off a stale challenge.
	if rec.Eliminated {
		return internal.ErrPlayerEliminated
	}

	if req.UsedHackerAbility {
		if rec.Role != internal.RoleHacker {
			return internal.ErrAbilityUnavailable
		}
		consumed, err := h.store.UseAbility(ctx, room.RoundID, userID)
		if err != nil {
			return err
		}
		if !consumed {
			return internal.ErrAbilityUnavailable
		}
		h.store.AppendEvent(ctx, room.RoundID, "hacker_bypass", map[string]any{"userId": userID})

		h.sendToMember(room, userID, internal.EvtQuizResult, internal.QuizResultData{
			Success:   true,
			TimeTaken: req.TimeTaken,
			Method:    internal.MethodHacker,
		})
		h.broadcast(room, internal.EvtBombDefused, internal.BombDefusedData{
			PlayerID: userID,
			Username: rec.Username,
			Method:   internal.MethodHacker,
		})
		return nil
	}

	question, err := h.store.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return err
	}
	correct := req.Answer != "" && strings.EqualFold(req.Answer, question.CorrectOption)

	if err := h.store.AppendAttempt(ctx, store.Attempt{
		RoundID:    room.RoundID,
		QuestionID: req.QuestionID,
		UserID:     userID,
		Answer:     req.Answer,
		Correct:    correct,
		TimeTaken:  req.TimeTaken,
	}); err != nil {
		return err
	}

	if correct {
		points := internal.DefusePoints + internal.SpeedBonus(req.TimeTaken)
		if err := h.store.RecordDefusal(ctx, room.RoundID, userID, points); err != nil {
			return err
		}
		h.store.AppendEvent(ctx, room.RoundID, "bomb_defused", map[string]any{
			"userId": userID,
			"points": points,
		})

		h.sendToMember(room, userID, internal.EvtQuizResult, internal.QuizResultData{
			Success:       true,
			ScoreGained:   points,
			CorrectAnswer: question.CorrectOption,
			TimeTaken:     req.TimeTaken,
			Method:        internal.MethodQuiz,
		})
		h.broadcast(room, internal.EvtBombDefused, internal.BombDefusedData{
			PlayerID:    userID,
			Username:    rec.Username,
			ScoreGained: points,
			Method:      internal.MethodQuiz,
		})
		views, err := h.playerViews(ctx, room)
		if err != nil {
			return err
		}
		h.broadcast(room, internal.EvtScoreUpdate, internal.ScoreUpdateData{Players: views})
		return nil
	}

	if err := h.store.RecordFailure(ctx, room.RoundID, userID); err != nil {
		return err
	}
	h.store.AppendEvent(ctx, room.RoundID, "bomb_failed", map[string]any{"userId": userID})

	h.sendToMember(room, userID, internal.EvtQuizResult, internal.QuizResultData{
		Success:       false,
		CorrectAnswer: question.CorrectOption,
		TimeTaken:     req.TimeTaken,
		Method:        internal.MethodQuiz,
	})

	if rec.RescuesLeft > 0 {
		// Give the player a short window to burn a defuse card before the
		// elimination lands.
		expiry, cancel := context.WithCancel(context.Background())
		room.PendingElim = &internal.PendingElimination{UserID: userID, Cancel: cancel}
		roundID := room.RoundID
		go func() {
			timer := time.NewTimer(internal.RescueWindow)
			defer timer.Stop()
			select {
			case <-expiry.Done():
			case <-timer.C:
				h.expireRescueWindow(room.Code, roundID, userID)
			}
		}()
		return nil
	}

	return h.finalizeElimination(ctx, room, userID)
}

func (h *Hub) expireRescueWindow(roomCode string, roundID int64, userID string) {
	room, ok := h.room(roomCode)
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	pe := room.PendingElim
	if pe == nil || pe.UserID != userID || room.RoundID != roundID {
		return
	}
	room.PendingElim = nil

	h.log.Info("rescue window expired", "room", roomCode, "user", userID)
	if err := h.finalizeElimination(context.Background(), room, userID); err != nil {
		h.log.Error("finalize elimination", "room", roomCode, "user", userID, "err", err)
	}
}

// finalizeElimination makes the elimination durable and either ends the
// round or hands the turn on. Caller holds room.Mu.
func (h *Hub) finalizeElimination(ctx context.Context, room *internal.Room, userID string) error {
	eliminated, err := h.store.EliminatePlayer(ctx, room.RoundID, userID)
	if err != nil {
		return err
	}
	if !eliminated {
		return nil
	}
	// Any challenge still owned by the eliminated player dies with them.
	if room.Pending != nil && room.Pending.UserID == userID {
		room.Pending.Cancel()
		room.Pending = nil
	}
	h.store.AppendEvent(ctx, room.RoundID, "player_eliminated", map[string]any{"userId": userID})

	rec, err := h.store.GetPlayerRecord(ctx, room.RoundID, userID)
	if err != nil {
		return err
	}
	views, err := h.playerViews(ctx, room)
	if err != nil {
		return err
	}
	h.broadcast(room, internal.EvtPlayerEliminated, internal.PlayerEliminatedData{
		PlayerID: userID,
		Username: rec.Username,
		Players:  views,
	})

	survivors, err := h.store.CountSurvivors(ctx, room.RoundID)
	if err != nil {
		return err
	}
	if survivors <= 1 {
		return h.endRound(ctx, room)
	}
	if room.CurrentTurnID == userID {
		_, err = h.advanceTurn(ctx, room)
		return err
	}
	return nil
}

// UseDefuseCard spends a rescue during the post-failure window, cancelling
// the pending elimination.
func (h *Hub) UseDefuseCard(ctx context.Context, c *internal.Client, roundID int64) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if !room.RoundActive || room.RoundID != roundID {
		return internal.ErrNoActiveRound
	}
	pe := room.PendingElim
	if pe == nil || pe.UserID != c.UserID {
		return internal.ErrNothingToRescue
	}

	spent, err := h.store.SpendRescue(ctx, roundID, c.UserID)
	if err != nil {
		return err
	}
	if !spent {
		return internal.ErrNoRescueAvailable
	}
	pe.Cancel()
	room.PendingElim = nil

	if err := h.store.AddScore(ctx, roundID, c.UserID, internal.RescuePoints); err != nil {
		return err
	}
	h.store.AppendEvent(ctx, roundID, "rescue_used", map[string]any{"userId": c.UserID})

	h.sendTo(c, internal.EvtDefuseCardUsed, internal.DefuseCardUsedData{
		ScoreGained: internal.RescuePoints,
	})
	h.broadcast(room, internal.EvtBombDefused, internal.BombDefusedData{
		PlayerID:    c.UserID,
		Username:    c.Username,
		ScoreGained: internal.RescuePoints,
		Method:      internal.MethodRescue,
	})
	views, err := h.playerViews(ctx, room)
	if err != nil {
		return err
	}
	h.broadcast(room, internal.EvtScoreUpdate, internal.ScoreUpdateData{Players: views})

	if room.CurrentTurnID == c.UserID {
		_, err = h.advanceTurn(ctx, room)
		return err
	}
	return nil
}

// UseHackerAbility announces the hacker's intent. The ability itself is
// consumed when the next answer arrives with the bypass flag set.
func (h *Hub) UseHackerAbility(ctx context.Context, c *internal.Client, roundID int64) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if !room.RoundActive || room.RoundID != roundID {
		return internal.ErrNoActiveRound
	}
	rec, err := h.store.GetPlayerRecord(ctx, roundID, c.UserID)
	if err != nil {
		return err
	}
	if rec.Role != internal.RoleHacker || rec.AbilityUsed {
		return internal.ErrAbilityUnavailable
	}

	h.broadcast(room, internal.EvtHackerActivated, internal.PresenceData{
		PlayerID: c.UserID,
		Username: c.Username,
	})
	return nil
}

// endRound completes the round durably and announces the result. Caller
// holds room.Mu.
func (h *Hub) endRound(ctx context.Context, room *internal.Room) error {
	records, err := h.store.ListPlayerRecords(ctx, room.RoundID)
	if err != nil {
		return err
	}

	var winner *store.PlayerRecord
	for i := range records {
		if records[i].Eliminated {
			continue
		}
		if winner == nil || records[i].Score > winner.Score {
			winner = &records[i]
		}
	}
	if winner == nil {
		// Everyone eliminated; highest score takes it.
		for i := range records {
			if winner == nil || records[i].Score > winner.Score {
				winner = &records[i]
			}
		}
	}

	winnerID := ""
	win := internal.WinnerData{}
	if winner != nil {
		winnerID = winner.UserID
		win = internal.WinnerData{ID: winner.UserID, Username: winner.Username, Score: winner.Score}
	}
	if err := h.store.CompleteRound(ctx, room.RoundID, winnerID); err != nil {
		return err
	}
	h.store.AppendEvent(ctx, room.RoundID, "round_ended", map[string]any{"winnerId": winnerID})

	if room.Pending != nil {
		room.Pending.Cancel()
		room.Pending = nil
	}
	if room.PendingElim != nil {
		room.PendingElim.Cancel()
		room.PendingElim = nil
	}
	room.RoundActive = false

	views := make([]internal.PlayerView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View(room.IsDisconnected(rec.UserID)))
	}
	h.log.Info("round ended", "room", room.Code, "round", room.RoundID, "winner", winnerID)
	h.broadcast(room, internal.EvtGameEnded, internal.GameEndedData{
		Winner:      win,
		Reason:      "last_player_standing",
		FinalScores: views,
	})
	return nil
}

// sendToMember targets one identity's connected seats. Caller holds room.Mu.
func (h *Hub) sendToMember(room *internal.Room, userID string, msgType string, data any) {
	for _, m := range room.Members {
		if m.UserID != userID || m.Disconnected || m.Client == nil {
			continue
		}
		if err := m.Client.Send(internal.Message[any]{Type: msgType, Data: data}); err != nil {
			h.log.Warn("send to member", "room", room.Code, "user", userID, "err", err)
		}
	}
}
