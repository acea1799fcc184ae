package internal

import "time"

// Message is the JSON envelope used in both directions on the websocket.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Client -> server event names.
const (
	EvtCreateRoom        = "createRoom"
	EvtJoinRoom          = "joinRoom"
	EvtRejoinRoom        = "rejoinRoom"
	EvtToggleReady       = "toggleReady"
	EvtStartGame         = "startGame"
	EvtLeaveRoom         = "leaveRoom"
	EvtScanBomb          = "scanBomb"
	EvtAnswerQuiz        = "answerQuiz"
	EvtUseDefuseCard     = "useDefuseCard"
	EvtUseHackerAbility  = "useHackerAbility"
	EvtPassTurn          = "passTurn"
	EvtRequestPlayerList = "requestPlayerList"
)

// Server -> client event names.
const (
	EvtWelcome            = "welcome"
	EvtPlayersUpdate      = "playersUpdate"
	EvtRoomCreated        = "roomCreated"
	EvtPlayerJoined       = "playerJoined"
	EvtPlayerLeft         = "playerLeft"
	EvtPlayerReady        = "playerReady"
	EvtRoomClosed         = "roomClosed"
	EvtRoomError          = "roomError"
	EvtGameError          = "gameError"
	EvtGameStarted        = "gameStarted"
	EvtPlayerTriggered    = "playerTriggeredBomb"
	EvtBombQuiz           = "bombQuiz"
	EvtQuizResult         = "quizResult"
	EvtScoreUpdate        = "scoreUpdate"
	EvtBombDefused        = "bombDefused"
	EvtDefuseCardUsed     = "defuseCardUsed"
	EvtHackerActivated    = "hackerAbilityActivated"
	EvtPlayerEliminated   = "playerEliminated"
	EvtTurnChanged        = "turnChanged"
	EvtPlayerDisconnected = "playerDisconnected"
	EvtPlayerReconnected  = "playerReconnected"
	EvtGameStateSync      = "gameStateSync"
	EvtGameEnded          = "gameEnded"
)

// Resolution method tags carried in quiz results and defuse notices.
const (
	MethodQuiz   = "quiz"
	MethodHacker = "hacker"
	MethodRescue = "defuse_card"
)

// Inbound payloads.

type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type RoundRequest struct {
	RoundID int64 `json:"roundId"`
}

type AnswerRequest struct {
	RoundID           int64   `json:"roundId"`
	QuestionID        int64   `json:"questionId"`
	Answer            string  `json:"answer"`
	TimeTaken         float64 `json:"timeTaken"`
	UsedHackerAbility bool    `json:"usedHackerAbility"`
}

// Outbound payloads.

type RosterEntry struct {
	Identity
	SessionID   string    `json:"sessionId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type WelcomeData struct {
	Message string      `json:"message"`
	Player  RosterEntry `json:"playerInfo"`
}

type RosterData struct {
	ConnectedPlayers []RosterEntry `json:"connectedPlayers"`
	TotalPlayers     int           `json:"totalPlayers"`
}

type RoomStateData struct {
	RoomCode string        `json:"roomCode"`
	Players  []*RoomMember `json:"players"`
}

type PlayerJoinedData struct {
	Players   []*RoomMember `json:"players"`
	NewPlayer *RoomMember   `json:"newPlayer,omitempty"`
}

type RoomClosedData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type GameStartedData struct {
	RoomCode    string       `json:"roomCode"`
	RoundID     int64        `json:"roundId"`
	Players     []PlayerView `json:"players"`
	CurrentTurn int          `json:"currentTurn"`
}

type TriggeredData struct {
	PlayerID     string `json:"playerId"`
	Username     string `json:"username"`
	TimerSeconds int    `json:"timerSeconds"`
}

// QuestionView deliberately omits the correct option.
type QuestionView struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
	OptionC  string `json:"optionC"`
	OptionD  string `json:"optionD"`
}

type BombQuizData struct {
	Question     QuestionView `json:"question"`
	TimerSeconds int          `json:"timerSeconds"`
	BonusTime    int          `json:"bonusTime"`
}

type QuizResultData struct {
	Success       bool    `json:"success"`
	ScoreGained   int     `json:"scoreGained"`
	CorrectAnswer string  `json:"correctAnswer"`
	TimeTaken     float64 `json:"timeTaken"`
	Method        string  `json:"method"`
}

type ScoreUpdateData struct {
	Players []PlayerView `json:"players"`
}

type BombDefusedData struct {
	PlayerID    string `json:"playerId"`
	Username    string `json:"username"`
	ScoreGained int    `json:"scoreGained"`
	Method      string `json:"method"`
}

type DefuseCardUsedData struct {
	ScoreGained int `json:"scoreGained"`
}

type PlayerEliminatedData struct {
	PlayerID string       `json:"playerId"`
	Username string       `json:"username"`
	Players  []PlayerView `json:"players"`
}

type TurnChangedData struct {
	CurrentTurn int        `json:"currentTurn"`
	NextPlayer  PlayerView `json:"nextPlayer"`
}

type PresenceData struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type GameStateSyncData struct {
	RoundID     int64        `json:"roundId"`
	RoomCode    string       `json:"roomCode"`
	Players     []PlayerView `json:"players"`
	CurrentTurn int          `json:"currentTurn"`
	Status      RoundStatus  `json:"status"`
}

type WinnerData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type GameEndedData struct {
	Winner      WinnerData   `json:"winner"`
	Reason      string       `json:"reason"`
	FinalScores []PlayerView `json:"finalScores"`
}
