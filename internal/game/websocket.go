package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and runs its read loop until the
// client goes away. Identity comes from query params; missing values get
// guest defaults so the lobby never rejects a connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade", "err", err)
		return
	}

	uid := r.URL.Query().Get("uid")
	if uid == "" {
		uid = "guest-" + utils.GenerateID(8)
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		username = "Anonymous"
	}

	client := &internal.Client{
		Identity:    internal.Identity{UserID: uid, Username: username},
		SessionID:   uuid.NewString(),
		ConnectedAt: time.Now(),
		Conn:        conn,
	}

	h.registry.Register(client)
	h.log.Info("client connected", "user", uid, "session", client.SessionID)

	h.sendTo(client, internal.EvtWelcome, internal.WelcomeData{
		Message: "connected",
		Player: internal.RosterEntry{
			Identity:    client.Identity,
			SessionID:   client.SessionID,
			ConnectedAt: client.ConnectedAt,
		},
	})

	defer func() {
		h.Disconnect(client)
		h.registry.Unregister(client.SessionID)
		_ = conn.Close()
		h.log.Info("client disconnected", "user", uid, "session", client.SessionID)
	}()

	for {
		var msg internal.Message[json.RawMessage]
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read", "session", client.SessionID, "err", err)
			}
			return
		}
		h.dispatch(r.Context(), client, msg)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *internal.Client, msg internal.Message[json.RawMessage]) {
	var err error
	roomScoped := false

	switch msg.Type {
	case internal.EvtCreateRoom:
		roomScoped = true
		var req internal.RoomRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.CreateRoom(c, req.RoomCode)
		}

	case internal.EvtJoinRoom:
		roomScoped = true
		var req internal.RoomRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.JoinRoom(c, req.RoomCode)
		}

	case internal.EvtRejoinRoom:
		roomScoped = true
		var req internal.RoomRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.Rejoin(ctx, c, req.RoomCode)
		}

	case internal.EvtToggleReady:
		roomScoped = true
		err = h.ToggleReady(c)

	case internal.EvtLeaveRoom:
		h.Leave(c)

	case internal.EvtStartGame:
		err = h.StartGame(ctx, c)

	case internal.EvtScanBomb:
		var req internal.RoundRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.ScanBomb(ctx, c, req.RoundID)
		}

	case internal.EvtAnswerQuiz:
		var req internal.AnswerRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.AnswerQuiz(ctx, c, req)
		}

	case internal.EvtUseDefuseCard:
		var req internal.RoundRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.UseDefuseCard(ctx, c, req.RoundID)
		}

	case internal.EvtUseHackerAbility:
		var req internal.RoundRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.UseHackerAbility(ctx, c, req.RoundID)
		}

	case internal.EvtPassTurn:
		var req internal.RoundRequest
		if err = json.Unmarshal(msg.Data, &req); err == nil {
			err = h.PassTurn(ctx, c, req.RoundID)
		}

	case internal.EvtRequestPlayerList:
		h.sendTo(c, internal.EvtPlayersUpdate, h.registry.roster())

	default:
		h.log.Warn("unknown message type", "type", msg.Type, "session", c.SessionID)
		return
	}

	if err == nil {
		return
	}
	h.log.Warn("handle message", "type", msg.Type, "user", c.UserID, "err", err)
	if roomScoped || isRoomError(err) {
		h.sendRoomError(c, err.Error())
		return
	}
	h.sendError(c, err.Error())
}

func isRoomError(err error) bool {
	return errors.Is(err, internal.ErrRoomNotFound) ||
		errors.Is(err, internal.ErrRoomExists) ||
		errors.Is(err, internal.ErrRoomFull)
}
