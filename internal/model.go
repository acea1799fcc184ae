package internal

import (
	"context"
	"sync"
	"time"
)

const (
	MaxPlayersPerRoom = 4
	MinPlayersToStart = 2
	RoomCodeLength    = 6

	// Challenge timing. The grace covers network latency between the
	// client-side countdown reaching zero and the submit arriving.
	BaseChallengeSeconds   = 30
	TimekeeperBonusSeconds = 15
	ChallengeGraceSeconds  = 5

	// Rescue decisions have their own window after a failed answer.
	RescueWindow = 10 * time.Second

	DefusePoints   = 10
	PassPoints     = 5
	RescuePoints   = 5
	InitialRescues = 1
)

// SpeedBonus returns the extra points awarded for a correct answer based on
// how fast it came in: +5 under 10s, +3 under 20s, +1 under 30s.
func SpeedBonus(timeTaken float64) int {
	switch {
	case timeTaken < 10:
		return 5
	case timeTaken < 20:
		return 3
	case timeTaken < 30:
		return 1
	default:
		return 0
	}
}

type RoundStatus string

const (
	StatusSetup      RoundStatus = "setup"
	StatusInProgress RoundStatus = "in_progress"
	StatusCompleted  RoundStatus = "completed"
)

type Role string

const (
	RoleHacker     Role = "hacker"
	RoleSpy        Role = "spy"
	RoleSaboteur   Role = "saboteur"
	RoleTrickster  Role = "trickster"
	RoleGambler    Role = "gambler"
	RoleTimekeeper Role = "timekeeper"
)

// AllRoles in assignment order before shuffling. Only the hacker (one-time
// auto-pass) and timekeeper (timer bonus) have mechanical effect; the rest
// are flavor tags.
func AllRoles() []Role {
	return []Role{RoleHacker, RoleSpy, RoleSaboteur, RoleTrickster, RoleGambler, RoleTimekeeper}
}

// PlayerColors assigned by join order: gold, red, cyan, purple.
var PlayerColors = []string{"#FFD700", "#FF6B6B", "#4ECDC4", "#9D4EDD"}

type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}

// Conn is the write side of a websocket connection. The concrete
// *websocket.Conn satisfies it; tests substitute a recorder.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client is one authenticated websocket connection. Reads happen on the
// transport's own goroutine; all writes go through Send so concurrent
// broadcasts cannot interleave frames.
type Client struct {
	Identity
	SessionID   string
	ConnectedAt time.Time
	Conn        Conn

	// RoomCode is the room this connection is currently joined to, "" if
	// none. Only the game hub mutates it.
	RoomCode string

	writeMu sync.Mutex
}

func (c *Client) Send(v any) error {
	if c == nil || c.Conn == nil {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// RoomMember is a seat in a room's ordered membership list. The slot a
// member occupies at round start is fixed for the whole round; a network
// drop only flips Disconnected.
type RoomMember struct {
	Identity
	SessionID    string  `json:"-"`
	Color        string  `json:"color"`
	Ready        bool    `json:"isReady"`
	Host         bool    `json:"isHost"`
	Disconnected bool    `json:"disconnected"`
	Client       *Client `json:"-"`
}

// Challenge is the ephemeral state between a bomb scan and its resolution.
// Cancel stops the server-side expiry timer when the answer arrives first.
type Challenge struct {
	UserID       string
	QuestionID   int64
	TimerSeconds int
	BonusSeconds int
	IssuedAt     time.Time
	Cancel       context.CancelFunc
}

// PendingElimination is the grace window in which a failed player may spend
// a rescue before the elimination becomes final.
type PendingElimination struct {
	UserID string
	Cancel context.CancelFunc
}

// Room holds the live membership and turn pointer for one session. The
// durable per-round record lives in the round store; everything here is
// liveness state reconciled against it.
//
// Mu serializes every mutating action on the room, held from the first
// durable read to the final broadcast, so two concurrent actions can never
// interleave their read-modify-write sequences.
type Room struct {
	Code    string
	Host    Identity
	Members []*RoomMember

	// Round state. RoundID is 0 until the host starts a round.
	// CurrentTurnID is the identity of the player whose turn it is; the
	// slot index clients see is derived from it at broadcast time.
	RoundID       int64
	RoundActive   bool
	CurrentTurnID string

	Pending     *Challenge
	PendingElim *PendingElimination

	CreatedAt time.Time

	Mu sync.Mutex
}

// PlayerView is the merged per-player snapshot sent to clients: the durable
// record joined with the member's live connectivity flag.
type PlayerView struct {
	UserID       string `json:"id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	Score        int    `json:"score"`
	TurnOrder    int    `json:"turnOrder"`
	Eliminated   bool   `json:"isEliminated"`
	BombsDefused int    `json:"bombsDefused"`
	BombsFailed  int    `json:"bombsFailed"`
	RescuesLeft  int    `json:"rescuesLeft"`
	AbilityUsed  bool   `json:"abilityUsed"`
	Disconnected bool   `json:"disconnected"`
}
