package store

import (
	"time"

	"github.com/udefuse/backend/internal"
)

// Round is one durable game round row.
type Round struct {
	ID        int64
	RoomCode  string
	Mode      string
	Status    internal.RoundStatus
	StartedAt *time.Time
	EndedAt   *time.Time
	WinnerID  *string
	CreatedAt time.Time
}

// PlayerRecord is the per-identity durable state for a round. Identity keys
// the record: two connections sharing an account share one record.
type PlayerRecord struct {
	ID           int64
	RoundID      int64
	UserID       string
	Username     string
	Role         internal.Role
	Score        int
	TurnOrder    int
	Eliminated   bool
	EliminatedAt *time.Time
	BombsDefused int
	BombsFailed  int
	RescuesLeft  int
	AbilityUsed  bool
}

// View merges the durable record with a live connectivity flag.
func (p PlayerRecord) View(disconnected bool) internal.PlayerView {
	return internal.PlayerView{
		UserID:       p.UserID,
		Username:     p.Username,
		Role:         p.Role,
		Score:        p.Score,
		TurnOrder:    p.TurnOrder,
		Eliminated:   p.Eliminated,
		BombsDefused: p.BombsDefused,
		BombsFailed:  p.BombsFailed,
		RescuesLeft:  p.RescuesLeft,
		AbilityUsed:  p.AbilityUsed,
		Disconnected: disconnected,
	}
}

type Question struct {
	ID            int64
	Text          string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectOption string
	Difficulty    string
}

func (q Question) View() internal.QuestionView {
	return internal.QuestionView{
		ID:       q.ID,
		Question: q.Text,
		OptionA:  q.OptionA,
		OptionB:  q.OptionB,
		OptionC:  q.OptionC,
		OptionD:  q.OptionD,
	}
}

// Attempt is one recorded answer to a bomb quiz, right or wrong.
type Attempt struct {
	ID         int64
	RoundID    int64
	QuestionID int64
	UserID     string
	Answer     string
	Correct    bool
	TimeTaken  float64
	CreatedAt  time.Time
}

// HistoryEntry is one row of a player's past-round history.
type HistoryEntry struct {
	RoundID  int64      `json:"roundId"`
	RoomCode string     `json:"roomCode"`
	EndedAt  *time.Time `json:"endedAt"`
	Score    int        `json:"score"`
	Won      bool       `json:"won"`
}
