package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/udefuse/backend/internal/game"
	"github.com/udefuse/backend/internal/store"
)

type Server struct {
	hub   *game.Hub
	store *store.Store
	log   *slog.Logger
}

func New(hub *game.Hub, st *store.Store, log *slog.Logger) *Server {
	return &Server{hub: hub, store: st, log: log}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"activeRooms": s.hub.RoomCount(),
	})
}

// handleHistory returns the caller's completed rounds, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("uid")
	if userID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "uid is required"})
		return
	}

	entries, err := s.store.History(r.Context(), userID, 20)
	if err != nil {
		s.log.Error("load history", "user", userID, "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load history"})
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}
