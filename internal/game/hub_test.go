package game

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udefuse/backend/internal"
	"github.com/udefuse/backend/internal/store"
)

// fakeStore is an in-memory RoundStore for hub tests.
type fakeStore struct {
	mu        sync.Mutex
	nextRound int64
	rounds    map[int64]*store.Round
	records   map[int64]map[string]*store.PlayerRecord
	questions []store.Question
	attempts  []store.Attempt
	events    []string
}

func newFakeStore() *fakeStore {
	fs := &fakeStore{
		rounds:  make(map[int64]*store.Round),
		records: make(map[int64]map[string]*store.PlayerRecord),
	}
	fs.questions = append(fs.questions, store.Question{
		ID: 1, Text: "capital of France?",
		OptionA: "Paris", OptionB: "Lyon", OptionC: "Nice", OptionD: "Lille",
		CorrectOption: "Paris", Difficulty: "easy",
	})
	return fs
}

func (f *fakeStore) CreateRound(ctx context.Context, roomCode, mode string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRound++
	id := f.nextRound
	f.rounds[id] = &store.Round{ID: id, RoomCode: roomCode, Mode: mode, Status: internal.StatusSetup}
	f.records[id] = make(map[string]*store.PlayerRecord)
	return id, nil
}

func (f *fakeStore) CreatePlayerRecord(ctx context.Context, p store.PlayerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := p
	f.records[p.RoundID][p.UserID] = &rec
	return nil
}

func (f *fakeStore) StartRound(ctx context.Context, roundID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds[roundID].Status = internal.StatusInProgress
	return nil
}

func (f *fakeStore) GetRound(ctx context.Context, roundID int64) (store.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[roundID]
	if !ok {
		return store.Round{}, internal.ErrNoActiveRound
	}
	return *r, nil
}

func (f *fakeStore) ListPlayerRecords(ctx context.Context, roundID int64) ([]store.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.PlayerRecord
	for _, rec := range f.records[roundID] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnOrder < out[j].TurnOrder })
	return out, nil
}

func (f *fakeStore) GetPlayerRecord(ctx context.Context, roundID int64, userID string) (store.PlayerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok {
		return store.PlayerRecord{}, internal.ErrPlayerNotFound
	}
	return *rec, nil
}

func (f *fakeStore) AddScore(ctx context.Context, roundID int64, userID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok {
		return internal.ErrPlayerNotFound
	}
	rec.Score += points
	return nil
}

func (f *fakeStore) RecordDefusal(ctx context.Context, roundID int64, userID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok {
		return internal.ErrPlayerNotFound
	}
	rec.Score += points
	rec.BombsDefused++
	return nil
}

func (f *fakeStore) RecordFailure(ctx context.Context, roundID int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok {
		return internal.ErrPlayerNotFound
	}
	rec.BombsFailed++
	return nil
}

func (f *fakeStore) EliminatePlayer(ctx context.Context, roundID int64, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok || rec.Eliminated {
		return false, nil
	}
	rec.Eliminated = true
	return true, nil
}

func (f *fakeStore) UseAbility(ctx context.Context, roundID int64, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok || rec.AbilityUsed {
		return false, nil
	}
	rec.AbilityUsed = true
	return true, nil
}

func (f *fakeStore) SpendRescue(ctx context.Context, roundID int64, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[roundID][userID]
	if !ok || rec.RescuesLeft <= 0 {
		return false, nil
	}
	rec.RescuesLeft--
	return true, nil
}

func (f *fakeStore) CountSurvivors(ctx context.Context, roundID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.records[roundID] {
		if !rec.Eliminated {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CompleteRound(ctx context.Context, roundID int64, winnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rounds[roundID]
	r.Status = internal.StatusCompleted
	r.WinnerID = &winnerID
	return nil
}

func (f *fakeStore) AppendAttempt(ctx context.Context, a store.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeStore) RandomQuestion(ctx context.Context, difficulty string) (store.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions[0], nil
}

func (f *fakeStore) GetQuestion(ctx context.Context, id int64) (store.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return store.Question{}, fmt.Errorf("question %d not found", id)
}

func (f *fakeStore) AppendEvent(ctx context.Context, roundID int64, eventType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

// setRole pins a player's role so role-dependent paths are deterministic.
func (f *fakeStore) setRole(roundID int64, userID string, role internal.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[roundID][userID].Role = role
}

func (f *fakeStore) setRescues(roundID int64, userID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[roundID][userID].RescuesLeft = n
}

func (f *fakeStore) record(roundID int64, userID string) store.PlayerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[roundID][userID]
}

// recorderConn captures every frame written to it as marshaled JSON.
type recorderConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorderConn) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.frames = append(r.frames, b)
	r.mu.Unlock()
	return nil
}

func (r *recorderConn) Close() error { return nil }

func (r *recorderConn) reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

func (r *recorderConn) all() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.frames))
	copy(out, r.frames)
	return out
}

// types lists the frame types received, in order.
func (r *recorderConn) types() []string {
	var out []string
	for _, b := range r.all() {
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(b, &env) == nil {
			out = append(out, env.Type)
		}
	}
	return out
}

func (r *recorderConn) hasType(t string) bool {
	for _, got := range r.types() {
		if got == t {
			return true
		}
	}
	return false
}

// lastOfType decodes the data payload of the most recent frame of a type.
func (r *recorderConn) lastOfType(t *testing.T, typ string, into any) bool {
	t.Helper()
	frames := r.all()
	for i := len(frames) - 1; i >= 0; i-- {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(frames[i], &env))
		if env.Type == typ {
			require.NoError(t, json.Unmarshal(env.Data, into))
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() (*Hub, *fakeStore) {
	fs := newFakeStore()
	reg := NewRegistry(testLogger())
	return NewHub(fs, reg, testLogger()), fs
}

func newTestClient(id, name string) (*internal.Client, *recorderConn) {
	rc := &recorderConn{}
	return &internal.Client{
		Identity:  internal.Identity{UserID: id, Username: name},
		SessionID: "session-" + id,
		Conn:      rc,
	}, rc
}

// startedRoom builds a room with n ready players and an in-progress round.
// Returns the hub, store, clients, conns, and the round id.
func startedRoom(t *testing.T, n int) (*Hub, *fakeStore, []*internal.Client, []*recorderConn, int64) {
	t.Helper()
	hub, fs := newTestHub()

	clients := make([]*internal.Client, n)
	conns := make([]*recorderConn, n)
	names := []string{"alice", "bob", "carol", "dave"}
	for i := 0; i < n; i++ {
		clients[i], conns[i] = newTestClient(names[i], names[i])
	}

	require.NoError(t, hub.CreateRoom(clients[0], "ABC123"))
	for i := 1; i < n; i++ {
		require.NoError(t, hub.JoinRoom(clients[i], "ABC123"))
	}
	for i := 0; i < n; i++ {
		require.NoError(t, hub.ToggleReady(clients[i]))
	}
	require.NoError(t, hub.StartGame(context.Background(), clients[0]))

	room, ok := hub.room("ABC123")
	require.True(t, ok)
	room.Mu.Lock()
	roundID := room.RoundID
	room.Mu.Unlock()
	require.NotZero(t, roundID)

	for _, rc := range conns {
		rc.reset()
	}
	return hub, fs, clients, conns, roundID
}
