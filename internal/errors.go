package internal

import "errors"

// Membership and authorization failures are reported to the requesting
// connection only and never mutate room state.
var (
	ErrRoomNotFound       = errors.New("room does not exist")
	ErrRoomExists         = errors.New("room code already in use")
	ErrRoomFull           = errors.New("room is full")
	ErrNotHost            = errors.New("only the room host can start the game")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNoActiveRound      = errors.New("no active round")
	ErrPlayerNotFound     = errors.New("player not found in round")
	ErrAbilityUnavailable = errors.New("ability unavailable")
	ErrNoRescueAvailable  = errors.New("no rescue available")
	ErrNotEnoughPlayers   = errors.New("not enough ready players")
	ErrNoPendingChallenge = errors.New("no pending challenge")
	ErrNothingToRescue    = errors.New("no elimination to cancel")
	ErrEliminationPending = errors.New("elimination pending, spend a rescue or wait")
	ErrPlayerEliminated   = errors.New("player is eliminated")
)
