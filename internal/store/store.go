package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udefuse/backend/internal"
)

// Store is the durable round store backed by Postgres. Each mutating method
// is a single statement so round state transitions are atomic without
// explicit transactions.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func New(pool *pgxpool.Pool, log *slog.Logger) *Store {
	return &Store{pool: pool, log: log}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS rounds (
		id          BIGSERIAL PRIMARY KEY,
		room_code   TEXT NOT NULL,
		mode        TEXT NOT NULL DEFAULT 'classic',
		status      TEXT NOT NULL DEFAULT 'setup',
		started_at  TIMESTAMPTZ,
		ended_at    TIMESTAMPTZ,
		winner_id   TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS player_records (
		id             BIGSERIAL PRIMARY KEY,
		round_id       BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		user_id        TEXT NOT NULL,
		username       TEXT NOT NULL,
		role           TEXT NOT NULL,
		score          INT NOT NULL DEFAULT 0,
		turn_order     INT NOT NULL,
		is_eliminated  BOOLEAN NOT NULL DEFAULT FALSE,
		eliminated_at  TIMESTAMPTZ,
		bombs_defused  INT NOT NULL DEFAULT 0,
		bombs_failed   INT NOT NULL DEFAULT 0,
		rescues_left   INT NOT NULL DEFAULT 0,
		ability_used   BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (round_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS quiz_questions (
		id             BIGSERIAL PRIMARY KEY,
		question       TEXT NOT NULL,
		option_a       TEXT NOT NULL,
		option_b       TEXT NOT NULL,
		option_c       TEXT NOT NULL,
		option_d       TEXT NOT NULL,
		correct_option TEXT NOT NULL,
		difficulty     TEXT NOT NULL DEFAULT 'medium'
	);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id          BIGSERIAL PRIMARY KEY,
		round_id    BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES quiz_questions(id),
		user_id     TEXT NOT NULL,
		answer      TEXT NOT NULL,
		is_correct  BOOLEAN NOT NULL,
		time_taken  DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS game_events (
		id         BIGSERIAL PRIMARY KEY,
		round_id   BIGINT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		payload    JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) CreateRound(ctx context.Context, roomCode, mode string) (int64, error) {
	const q = `INSERT INTO rounds (room_code, mode, status)
		VALUES ($1, $2, 'setup') RETURNING id`

	var id int64
	if err := s.pool.QueryRow(ctx, q, roomCode, mode).Scan(&id); err != nil {
		return 0, fmt.Errorf("create round: %w", err)
	}
	return id, nil
}

func (s *Store) CreatePlayerRecord(ctx context.Context, p PlayerRecord) error {
	const q = `INSERT INTO player_records
		(round_id, user_id, username, role, turn_order, rescues_left)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q, p.RoundID, p.UserID, p.Username, p.Role, p.TurnOrder, p.RescuesLeft)
	if err != nil {
		return fmt.Errorf("create player record: %w", err)
	}
	return nil
}

func (s *Store) StartRound(ctx context.Context, roundID int64) error {
	const q = `UPDATE rounds SET status = 'in_progress', started_at = now() WHERE id = $1`

	if _, err := s.pool.Exec(ctx, q, roundID); err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

func (s *Store) GetRound(ctx context.Context, roundID int64) (Round, error) {
	const q = `SELECT id, room_code, mode, status, started_at, ended_at, winner_id, created_at
		FROM rounds WHERE id = $1`

	var r Round
	err := s.pool.QueryRow(ctx, q, roundID).Scan(
		&r.ID, &r.RoomCode, &r.Mode, &r.Status, &r.StartedAt, &r.EndedAt, &r.WinnerID, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Round{}, internal.ErrNoActiveRound
	}
	if err != nil {
		return Round{}, fmt.Errorf("get round: %w", err)
	}
	return r, nil
}

// ListPlayerRecords returns the round's records in turn order.
func (s *Store) ListPlayerRecords(ctx context.Context, roundID int64) ([]PlayerRecord, error) {
	const q = `SELECT id, round_id, user_id, username, role, score, turn_order,
		is_eliminated, eliminated_at, bombs_defused, bombs_failed, rescues_left, ability_used
		FROM player_records WHERE round_id = $1 ORDER BY turn_order`

	rows, err := s.pool.Query(ctx, q, roundID)
	if err != nil {
		return nil, fmt.Errorf("list player records: %w", err)
	}
	defer rows.Close()

	var out []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(
			&p.ID, &p.RoundID, &p.UserID, &p.Username, &p.Role, &p.Score, &p.TurnOrder,
			&p.Eliminated, &p.EliminatedAt, &p.BombsDefused, &p.BombsFailed, &p.RescuesLeft, &p.AbilityUsed,
		); err != nil {
			return nil, fmt.Errorf("scan player record: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPlayerRecord(ctx context.Context, roundID int64, userID string) (PlayerRecord, error) {
	const q = `SELECT id, round_id, user_id, username, role, score, turn_order,
		is_eliminated, eliminated_at, bombs_defused, bombs_failed, rescues_left, ability_used
		FROM player_records WHERE round_id = $1 AND user_id = $2`

	var p PlayerRecord
	err := s.pool.QueryRow(ctx, q, roundID, userID).Scan(
		&p.ID, &p.RoundID, &p.UserID, &p.Username, &p.Role, &p.Score, &p.TurnOrder,
		&p.Eliminated, &p.EliminatedAt, &p.BombsDefused, &p.BombsFailed, &p.RescuesLeft, &p.AbilityUsed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlayerRecord{}, internal.ErrPlayerNotFound
	}
	if err != nil {
		return PlayerRecord{}, fmt.Errorf("get player record: %w", err)
	}
	return p, nil
}

func (s *Store) AddScore(ctx context.Context, roundID int64, userID string, points int) error {
	const q = `UPDATE player_records SET score = score + $3
		WHERE round_id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, q, roundID, userID, points)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.ErrPlayerNotFound
	}
	return nil
}

// RecordDefusal credits a successful defusal in one statement.
func (s *Store) RecordDefusal(ctx context.Context, roundID int64, userID string, points int) error {
	const q = `UPDATE player_records
		SET score = score + $3, bombs_defused = bombs_defused + 1
		WHERE round_id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, q, roundID, userID, points)
	if err != nil {
		return fmt.Errorf("record defusal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.ErrPlayerNotFound
	}
	return nil
}

func (s *Store) RecordFailure(ctx context.Context, roundID int64, userID string) error {
	const q = `UPDATE player_records SET bombs_failed = bombs_failed + 1
		WHERE round_id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, q, roundID, userID)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return internal.ErrPlayerNotFound
	}
	return nil
}

// EliminatePlayer marks the player out. Returns false when the player was
// already eliminated, making repeated expiry paths idempotent.
func (s *Store) EliminatePlayer(ctx context.Context, roundID int64, userID string) (bool, error) {
	const q = `UPDATE player_records SET is_eliminated = TRUE, eliminated_at = now()
		WHERE round_id = $1 AND user_id = $2 AND NOT is_eliminated`

	tag, err := s.pool.Exec(ctx, q, roundID, userID)
	if err != nil {
		return false, fmt.Errorf("eliminate player: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UseAbility consumes the one-shot role ability. The WHERE clause makes the
// consume atomic: a second concurrent use finds the flag already set.
func (s *Store) UseAbility(ctx context.Context, roundID int64, userID string) (bool, error) {
	const q = `UPDATE player_records SET ability_used = TRUE
		WHERE round_id = $1 AND user_id = $2 AND NOT ability_used`

	tag, err := s.pool.Exec(ctx, q, roundID, userID)
	if err != nil {
		return false, fmt.Errorf("use ability: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SpendRescue decrements the rescue count, failing when none are left.
func (s *Store) SpendRescue(ctx context.Context, roundID int64, userID string) (bool, error) {
	const q = `UPDATE player_records SET rescues_left = rescues_left - 1
		WHERE round_id = $1 AND user_id = $2 AND rescues_left > 0`

	tag, err := s.pool.Exec(ctx, q, roundID, userID)
	if err != nil {
		return false, fmt.Errorf("spend rescue: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CountSurvivors(ctx context.Context, roundID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM player_records
		WHERE round_id = $1 AND NOT is_eliminated`

	var n int
	if err := s.pool.QueryRow(ctx, q, roundID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count survivors: %w", err)
	}
	return n, nil
}

func (s *Store) CompleteRound(ctx context.Context, roundID int64, winnerID string) error {
	const q = `UPDATE rounds SET status = 'completed', ended_at = now(), winner_id = $2
		WHERE id = $1`

	if _, err := s.pool.Exec(ctx, q, roundID, winnerID); err != nil {
		return fmt.Errorf("complete round: %w", err)
	}
	return nil
}

func (s *Store) AppendAttempt(ctx context.Context, a Attempt) error {
	const q = `INSERT INTO quiz_attempts (round_id, question_id, user_id, answer, is_correct, time_taken)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q, a.RoundID, a.QuestionID, a.UserID, a.Answer, a.Correct, a.TimeTaken)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// RandomQuestion picks a question, optionally filtered by difficulty.
func (s *Store) RandomQuestion(ctx context.Context, difficulty string) (Question, error) {
	const q = `SELECT id, question, option_a, option_b, option_c, option_d, correct_option, difficulty
		FROM quiz_questions
		WHERE ($1 = '' OR difficulty = $1)
		ORDER BY random() LIMIT 1`

	var out Question
	err := s.pool.QueryRow(ctx, q, difficulty).Scan(
		&out.ID, &out.Text, &out.OptionA, &out.OptionB, &out.OptionC, &out.OptionD,
		&out.CorrectOption, &out.Difficulty,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, fmt.Errorf("no quiz questions loaded")
	}
	if err != nil {
		return Question{}, fmt.Errorf("random question: %w", err)
	}
	return out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (Question, error) {
	const q = `SELECT id, question, option_a, option_b, option_c, option_d, correct_option, difficulty
		FROM quiz_questions WHERE id = $1`

	var out Question
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&out.ID, &out.Text, &out.OptionA, &out.OptionB, &out.OptionC, &out.OptionD,
		&out.CorrectOption, &out.Difficulty,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, fmt.Errorf("question %d not found", id)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return out, nil
}

// AppendEvent writes one audit row. Failures are logged, not returned: the
// audit trail never blocks gameplay.
func (s *Store) AppendEvent(ctx context.Context, roundID int64, eventType string, payload any) {
	const q = `INSERT INTO game_events (round_id, event_type, payload) VALUES ($1, $2, $3)`

	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal game event", "event", eventType, "err", err)
		return
	}
	if _, err := s.pool.Exec(ctx, q, roundID, eventType, raw); err != nil {
		s.log.Error("append game event", "event", eventType, "err", err)
	}
}

// History lists a player's finished rounds, most recent first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT r.id, r.room_code, r.ended_at, p.score, r.winner_id = p.user_id
		FROM rounds r
		JOIN player_records p ON p.round_id = r.id
		WHERE p.user_id = $1 AND r.status = 'completed'
		ORDER BY r.ended_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var won *bool
		if err := rows.Scan(&h.RoundID, &h.RoomCode, &h.EndedAt, &h.Score, &won); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Won = won != nil && *won
		out = append(out, h)
	}
	return out, rows.Err()
}

// SeedQuestions loads starter questions when the table is empty.
func (s *Store) SeedQuestions(ctx context.Context, qs []Question) error {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_questions`).Scan(&n); err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if n > 0 {
		return nil
	}
	const q = `INSERT INTO quiz_questions (question, option_a, option_b, option_c, option_d, correct_option, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, question := range qs {
		if _, err := s.pool.Exec(ctx, q,
			question.Text, question.OptionA, question.OptionB, question.OptionC, question.OptionD,
			question.CorrectOption, question.Difficulty,
		); err != nil {
			return fmt.Errorf("seed question: %w", err)
		}
	}
	s.log.Info("seeded quiz questions", "count", len(qs))
	return nil
}
