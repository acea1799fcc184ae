package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
	"github.com/udefuse/backend/internal/utils"
)

// CreateRoom opens a new room with the client as host and seats them. A
// repeat createRoom from the host of an existing room replays roomCreated
// instead of failing, so a retried frame is harmless.
func (h *Hub) CreateRoom(c *internal.Client, code string) error {
	code = normalizeCode(code)
	if code == "" {
		code = utils.GenerateRoomCode()
	}
	if !utils.ValidRoomCode(code) {
		return fmt.Errorf("invalid room code %q", code)
	}

	h.mu.Lock()
	existing, ok := h.rooms[code]
	if ok && existing.Host.UserID != c.UserID {
		h.mu.Unlock()
		return internal.ErrRoomExists
	}
	var room *internal.Room
	if ok {
		room = existing
	} else {
		room = &internal.Room{
			Code:      code,
			Host:      c.Identity,
			CreatedAt: time.Now(),
		}
		h.rooms[code] = room
	}
	h.mu.Unlock()

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.MemberBySession(c.SessionID) == nil {
		room.Members = append(room.Members, &internal.RoomMember{
			Identity:  c.Identity,
			SessionID: c.SessionID,
			Color:     room.NextColor(),
			Host:      true,
			Client:    c,
		})
	}
	c.RoomCode = code

	h.log.Info("room created", "room", code, "host", c.UserID)
	h.sendTo(c, internal.EvtRoomCreated, internal.RoomStateData{
		RoomCode: code,
		Players:  room.Members,
	})
	return nil
}

// JoinRoom seats the client in an existing room. Replayed joins from the
// same session are answered with the current state instead of an error.
func (h *Hub) JoinRoom(c *internal.Client, code string) error {
	code = normalizeCode(code)
	room, ok := h.room(code)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if m := room.MemberBySession(c.SessionID); m != nil {
		h.sendTo(c, internal.EvtPlayerJoined, internal.PlayerJoinedData{Players: room.Members, NewPlayer: m})
		return nil
	}
	if len(room.Members) >= internal.MaxPlayersPerRoom {
		return internal.ErrRoomFull
	}
	if room.HasIdentity(c.UserID) {
		h.log.Warn("identity joining twice", "room", code, "user", c.UserID)
	}

	member := &internal.RoomMember{
		Identity:  c.Identity,
		SessionID: c.SessionID,
		Color:     room.NextColor(),
		Client:    c,
	}
	room.Members = append(room.Members, member)
	c.RoomCode = code

	h.log.Info("player joined", "room", code, "user", c.UserID)
	h.broadcast(room, internal.EvtPlayerJoined, internal.PlayerJoinedData{
		Players:   room.Members,
		NewPlayer: member,
	})
	return nil
}

// ToggleReady flips the ready flag for the client's seat.
func (h *Hub) ToggleReady(c *internal.Client) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	m := room.MemberBySession(c.SessionID)
	if m == nil {
		return internal.ErrRoomNotFound
	}
	m.Ready = !m.Ready

	h.broadcast(room, internal.EvtPlayerReady, internal.RoomStateData{
		RoomCode: room.Code,
		Players:  room.Members,
	})
	return nil
}

// Leave handles an explicit leaveRoom. Before a round the seat is removed;
// once a round has started the seat is kept and marked disconnected so the
// player can rejoin.
func (h *Hub) Leave(c *internal.Client) {
	h.departed(c, true)
}

// Disconnect handles a dropped connection, same rules as Leave except the
// seat-removal decision also applies pre-round.
func (h *Hub) Disconnect(c *internal.Client) {
	h.departed(c, false)
}

func (h *Hub) departed(c *internal.Client, explicit bool) {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return
	}

	room.Mu.Lock()
	m := room.MemberBySession(c.SessionID)
	if m == nil {
		room.Mu.Unlock()
		return
	}

	if room.RoundID != 0 {
		// Mid-round departures keep the seat for reconciliation.
		m.Disconnected = true
		m.Client = nil
		c.RoomCode = ""
		h.broadcast(room, internal.EvtPlayerDisconnected, internal.PresenceData{
			PlayerID: m.UserID,
			Username: m.Username,
		})
		room.Mu.Unlock()
		h.log.Info("player disconnected mid-round", "room", room.Code, "user", m.UserID, "explicit", explicit)
		return
	}

	room.RemoveBySession(c.SessionID)
	c.RoomCode = ""

	if len(room.Members) == 0 || m.Host {
		code := room.Code
		h.broadcast(room, internal.EvtRoomClosed, internal.RoomClosedData{
			Message: "host left the room",
		})
		room.Mu.Unlock()
		h.removeRoom(code)
		h.log.Info("room closed", "room", code)
		return
	}

	h.broadcast(room, internal.EvtPlayerLeft, internal.PlayerJoinedData{Players: room.Members})
	room.Mu.Unlock()
	h.log.Info("player left", "room", room.Code, "user", m.UserID)
}

// Rejoin reattaches a reconnected client to its seat and, when a round is
// running, replays the authoritative game state to everyone.
func (h *Hub) Rejoin(ctx context.Context, c *internal.Client, code string) error {
	code = normalizeCode(code)
	room, ok := h.room(code)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	m := room.MemberByID(c.UserID)
	if m == nil {
		return internal.ErrPlayerNotFound
	}
	m.SessionID = c.SessionID
	m.Client = c
	m.Disconnected = false
	c.RoomCode = code

	h.broadcast(room, internal.EvtPlayerReconnected, internal.PresenceData{
		PlayerID: m.UserID,
		Username: m.Username,
	})
	h.log.Info("player reconnected", "room", code, "user", c.UserID)

	if room.RoundID != 0 {
		return h.reconcile(ctx, room)
	}
	h.sendTo(c, internal.EvtPlayerJoined, internal.PlayerJoinedData{Players: room.Members, NewPlayer: m})
	return nil
}

// StartGame creates the durable round, assigns roles and turn order, and
// opens play. Only when every durable write has succeeded does the room
// flip to active; a store failure leaves the lobby untouched.
func (h *Hub) StartGame(ctx context.Context, c *internal.Client) error {
	room, ok := h.room(c.RoomCode)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Host.UserID != c.UserID {
		return internal.ErrNotHost
	}
	if room.RoundActive {
		return nil
	}
	// Multi-tab seats share one durable record, so the minimum is counted
	// over distinct identities, not seats.
	identities := make(map[string]bool, len(room.Members))
	for _, m := range room.Members {
		identities[m.UserID] = true
	}
	if len(identities) < internal.MinPlayersToStart || !room.AllReady() {
		return internal.ErrNotEnoughPlayers
	}

	roundID, err := h.store.CreateRound(ctx, room.Code, "classic")
	if err != nil {
		return err
	}

	roles := shuffledRoles(len(room.Members))
	seen := make(map[string]bool, len(room.Members))
	order := 0
	for i, m := range room.Members {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		rec := store.PlayerRecord{
			RoundID:     roundID,
			UserID:      m.UserID,
			Username:    m.Username,
			Role:        roles[i],
			TurnOrder:   order,
			RescuesLeft: internal.InitialRescues,
		}
		if err := h.store.CreatePlayerRecord(ctx, rec); err != nil {
			return err
		}
		order++
	}
	if err := h.store.StartRound(ctx, roundID); err != nil {
		return err
	}

	room.RoundID = roundID
	room.RoundActive = true
	room.CurrentTurnID = room.Members[0].UserID
	room.PendingElim = nil
	room.Pending = nil

	h.store.AppendEvent(ctx, roundID, "turn_start", map[string]any{"userId": room.CurrentTurnID})

	views, err := h.playerViews(ctx, room)
	if err != nil {
		return err
	}
	h.log.Info("game started", "room", room.Code, "round", roundID, "players", len(views))
	h.broadcast(room, internal.EvtGameStarted, internal.GameStartedData{
		RoomCode:    room.Code,
		RoundID:     roundID,
		Players:     views,
		CurrentTurn: 0,
	})
	return nil
}

func shuffledRoles(n int) []internal.Role {
	roles := internal.AllRoles()
	rand.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	if n > len(roles) {
		n = len(roles)
	}
	return roles[:n]
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
