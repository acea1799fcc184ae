package game

import (
	"context"
	"log/slog"
	"sync"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
)

// RoundStore is the durable side of a game round. *store.Store satisfies it;
// tests use an in-memory fake.
type RoundStore interface {
	CreateRound(ctx context.Context, roomCode, mode string) (int64, error)
	CreatePlayerRecord(ctx context.Context, p store.PlayerRecord) error
	StartRound(ctx context.Context, roundID int64) error
	GetRound(ctx context.Context, roundID int64) (store.Round, error)
	ListPlayerRecords(ctx context.Context, roundID int64) ([]store.PlayerRecord, error)
	GetPlayerRecord(ctx context.Context, roundID int64, userID string) (store.PlayerRecord, error)
	AddScore(ctx context.Context, roundID int64, userID string, points int) error
	RecordDefusal(ctx context.Context, roundID int64, userID string, points int) error
	RecordFailure(ctx context.Context, roundID int64, userID string) error
	EliminatePlayer(ctx context.Context, roundID int64, userID string) (bool, error)
	UseAbility(ctx context.Context, roundID int64, userID string) (bool, error)
	SpendRescue(ctx context.Context, roundID int64, userID string) (bool, error)
	CountSurvivors(ctx context.Context, roundID int64) (int, error)
	CompleteRound(ctx context.Context, roundID int64, winnerID string) error
	AppendAttempt(ctx context.Context, a store.Attempt) error
	RandomQuestion(ctx context.Context, difficulty string) (store.Question, error)
	GetQuestion(ctx context.Context, id int64) (store.Question, error)
	AppendEvent(ctx context.Context, roundID int64, eventType string, payload any)
}

// Hub owns every live room. Its own mutex guards only the room map; each
// room's mutex guards that room's state.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*internal.Room

	store    RoundStore
	registry *Registry
	log      *slog.Logger
}

func NewHub(st RoundStore, reg *Registry, log *slog.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]*internal.Room),
		store:    st,
		registry: reg,
		log:      log,
	}
}

func (h *Hub) room(code string) (*internal.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[code]
	return r, ok
}

func (h *Hub) removeRoom(code string) {
	h.mu.Lock()
	delete(h.rooms, code)
	h.mu.Unlock()
}

// RoomCount is used by the health endpoint.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
