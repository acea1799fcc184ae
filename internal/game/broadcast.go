package game

import "github.com/udefuse/backend/internal"

// broadcast sends one frame to every connected member of the room. The
// caller holds room.Mu; Send serializes writes per connection so holding
// the room lock across the writes is safe.
func (h *Hub) broadcast(room *internal.Room, msgType string, data any) {
	msg := internal.Message[any]{Type: msgType, Data: data}
	for _, m := range room.Members {
		if m.Disconnected || m.Client == nil {
			continue
		}
		if err := m.Client.Send(msg); err != nil {
			h.log.Warn("room broadcast", "room", room.Code, "type", msgType,
				"user", m.UserID, "err", err)
		}
	}
}

func (h *Hub) sendTo(c *internal.Client, msgType string, data any) {
	if err := c.Send(internal.Message[any]{Type: msgType, Data: data}); err != nil {
		h.log.Warn("send", "type", msgType, "session", c.SessionID, "err", err)
	}
}

// sendError reports a gameplay failure to the requesting connection only.
func (h *Hub) sendError(c *internal.Client, message string) {
	h.sendTo(c, internal.EvtGameError, internal.ErrorData{Message: message})
}

// sendRoomError reports a lobby/membership failure to the requesting
// connection only.
func (h *Hub) sendRoomError(c *internal.Client, message string) {
	h.sendTo(c, internal.EvtRoomError, internal.ErrorData{Message: message})
}
