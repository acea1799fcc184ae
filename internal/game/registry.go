package game

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/udefuse/backend/internal"
)

// Registry tracks every open websocket connection, keyed by session. It is
// the source of the global roster shown in the lobby.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*internal.Client
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*internal.Client),
		log:     log,
	}
}

// Register adds the connection and announces the new roster. If the same
// identity already has a connection, the old one is closed first so a
// refreshed tab replaces its stale session instead of ghosting it.
func (r *Registry) Register(c *internal.Client) {
	r.mu.Lock()
	var stale *internal.Client
	for sid, existing := range r.clients {
		if existing.UserID == c.UserID && sid != c.SessionID {
			stale = existing
			delete(r.clients, sid)
			break
		}
	}
	r.clients[c.SessionID] = c
	r.mu.Unlock()

	if stale != nil {
		r.log.Info("replacing stale session", "user", c.UserID, "oldSession", stale.SessionID)
		_ = stale.Conn.Close()
	}

	r.broadcastRoster()

	// The joining client's read loop may not be draining yet; a short delay
	// keeps the first roster frame from racing the welcome frame on slow
	// clients.
	time.AfterFunc(100*time.Millisecond, func() {
		if err := c.Send(internal.Message[internal.RosterData]{
			Type: internal.EvtPlayersUpdate,
			Data: r.roster(),
		}); err != nil {
			r.log.Warn("initial roster send", "session", c.SessionID, "err", err)
		}
	})
}

// Unregister removes the session and announces the shrunk roster. Returns
// the removed client, nil if the session was already gone.
func (r *Registry) Unregister(sessionID string) *internal.Client {
	r.mu.Lock()
	c, ok := r.clients[sessionID]
	if ok {
		delete(r.clients, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	r.broadcastRoster()
	return c
}

func (r *Registry) Get(sessionID string) *internal.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[sessionID]
}

// List snapshots the connected clients in a stable order.
func (r *Registry) List() []*internal.Client {
	r.mu.Lock()
	out := make([]*internal.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (r *Registry) roster() internal.RosterData {
	clients := r.List()
	entries := make([]internal.RosterEntry, 0, len(clients))
	for _, c := range clients {
		entries = append(entries, internal.RosterEntry{
			Identity:    c.Identity,
			SessionID:   c.SessionID,
			ConnectedAt: c.ConnectedAt,
		})
	}
	return internal.RosterData{ConnectedPlayers: entries, TotalPlayers: len(entries)}
}

func (r *Registry) broadcastRoster() {
	msg := internal.Message[internal.RosterData]{
		Type: internal.EvtPlayersUpdate,
		Data: r.roster(),
	}
	for _, c := range r.List() {
		if err := c.Send(msg); err != nil {
			r.log.Warn("roster broadcast", "session", c.SessionID, "err", err)
		}
	}
}
