package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/huddleai/huddle/internal/llm"
)

// Store is the SQLite-backed context store.
//
// Reads and writes for one user happen within single transactions, so a
// turn that fails before SaveTurn leaves the stored state byte-identical
// to its pre-turn snapshot. Serialization of turns per user is the
// orchestrator's job; the store only guarantees each SaveTurn is atomic.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewStoreWithDB creates a store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		timestamp TIMESTAMP NOT NULL,
		FOREIGN KEY (user_id) REFERENCES conversations(user_id) ON DELETE CASCADE,
		UNIQUE(user_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, seq);

	CREATE TABLE IF NOT EXISTS fantasy_context (
		user_id TEXT PRIMARY KEY,
		league_id TEXT,
		espn_s2 TEXT,
		swid TEXT,
		team_name TEXT,
		state TEXT NOT NULL DEFAULT 'no_credentials',
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analysis_context (
		user_id TEXT PRIMARY KEY,
		kind TEXT,
		subject TEXT,
		detail TEXT,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions(user_id, created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Load reads the full per-user context. Missing rows yield zero-value
// context (lazy creation happens on first SaveTurn); an unreachable
// store yields a *LoadError.
func (s *Store) Load(userID string) (*Snapshot, error) {
	conv, err := s.loadConversation(userID)
	if err != nil {
		return nil, &LoadError{UserID: userID, Err: err}
	}

	fc, err := s.loadFantasy(userID)
	if err != nil {
		return nil, &LoadError{UserID: userID, Err: err}
	}

	ac, err := s.loadAnalysis(userID)
	if err != nil {
		return nil, &LoadError{UserID: userID, Err: err}
	}

	return &Snapshot{Conversation: conv, Fantasy: fc, Analysis: ac}, nil
}

func (s *Store) loadConversation(userID string) (*Conversation, error) {
	conv := &Conversation{UserID: userID}

	err := s.db.QueryRow(`
		SELECT created_at, updated_at FROM conversations WHERE user_id = ?
	`, userID).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return conv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, role, content, tool_calls, tool_call_id, timestamp
		FROM messages
		WHERE user_id = ?
		ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		var toolCalls, toolCallID sql.NullString
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &toolCalls, &toolCallID, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			var tcs []llm.ToolCall
			if err := json.Unmarshal([]byte(toolCalls.String), &tcs); err != nil {
				return nil, fmt.Errorf("decode tool calls for message %s: %w", m.ID, err)
			}
			m.ToolCalls = tcs
		}
		if toolCallID.Valid {
			m.ToolCallID = toolCallID.String
		}
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return conv, nil
}

func (s *Store) loadFantasy(userID string) (FantasyContext, error) {
	fc := FantasyContext{State: StateNoCredentials}

	var leagueID, espnS2, swid, teamName sql.NullString
	err := s.db.QueryRow(`
		SELECT league_id, espn_s2, swid, team_name, state
		FROM fantasy_context WHERE user_id = ?
	`, userID).Scan(&leagueID, &espnS2, &swid, &teamName, &fc.State)
	if errors.Is(err, sql.ErrNoRows) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("query fantasy context: %w", err)
	}

	fc.LeagueID = leagueID.String
	fc.ESPNS2 = espnS2.String
	fc.SWID = swid.String
	fc.TeamName = teamName.String
	return fc, nil
}

func (s *Store) loadAnalysis(userID string) (AnalysisContext, error) {
	var ac AnalysisContext

	var kind, subject, detail sql.NullString
	err := s.db.QueryRow(`
		SELECT kind, subject, detail, updated_at
		FROM analysis_context WHERE user_id = ?
	`, userID).Scan(&kind, &subject, &detail, &ac.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ac, nil
	}
	if err != nil {
		return ac, fmt.Errorf("query analysis context: %w", err)
	}

	ac.Kind = kind.String
	ac.Subject = subject.String
	ac.Detail = detail.String
	return ac, nil
}

// SaveTurn persists the outcome of one turn atomically: the messages
// appended during the turn, plus the (possibly updated) fantasy and
// analysis contexts. All writes happen in one transaction; on any error
// nothing is committed and a *SaveError is returned.
func (s *Store) SaveTurn(userID string, newMessages []Message, fc FantasyContext, ac AnalysisContext) error {
	if err := s.saveTurn(userID, newMessages, fc, ac); err != nil {
		return &SaveError{UserID: userID, Err: err}
	}
	return nil
}

func (s *Store) saveTurn(userID string, newMessages []Message, fc FantasyContext, ac AnalysisContext) error {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO conversations (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET updated_at = excluded.updated_at
	`, userID, now, now)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE user_id = ?`, userID).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	for _, m := range newMessages {
		seq++
		id := m.ID
		if id == "" {
			u, _ := uuid.NewV7()
			id = u.String()
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = now
		}

		var toolCalls any
		if len(m.ToolCalls) > 0 {
			data, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
			toolCalls = string(data)
		}

		_, err = tx.Exec(`
			INSERT INTO messages (id, user_id, seq, role, content, tool_calls, tool_call_id, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, userID, seq, m.Role, m.Content, toolCalls, nullable(m.ToolCallID), ts)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO fantasy_context (user_id, league_id, espn_s2, swid, team_name, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			league_id = excluded.league_id,
			espn_s2 = excluded.espn_s2,
			swid = excluded.swid,
			team_name = excluded.team_name,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, userID, nullable(fc.LeagueID), nullable(fc.ESPNS2), nullable(fc.SWID), nullable(fc.TeamName), string(fc.State), now)
	if err != nil {
		return fmt.Errorf("upsert fantasy context: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO analysis_context (user_id, kind, subject, detail, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			kind = excluded.kind,
			subject = excluded.subject,
			detail = excluded.detail,
			updated_at = excluded.updated_at
	`, userID, nullable(ac.Kind), nullable(ac.Subject), nullable(ac.Detail), now)
	if err != nil {
		return fmt.Errorf("upsert analysis context: %w", err)
	}

	return tx.Commit()
}

// Clear removes a user's conversation history. Fantasy context and
// predictions survive a reset.
func (s *Store) Clear(userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE user_id = ?`, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// SetFantasyCredentials links a league to a user. The state machine
// resets: team selection starts over against the new league.
func (s *Store) SetFantasyCredentials(userID, leagueID, espnS2, swid string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO fantasy_context (user_id, league_id, espn_s2, swid, team_name, state, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			league_id = excluded.league_id,
			espn_s2 = excluded.espn_s2,
			swid = excluded.swid,
			team_name = NULL,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, userID, nullable(leagueID), nullable(espnS2), nullable(swid), string(StateNoCredentials), now)
	if err != nil {
		return &SaveError{UserID: userID, Err: fmt.Errorf("set fantasy credentials: %w", err)}
	}
	return nil
}

// CreatePrediction saves a new pending prediction.
func (s *Store) CreatePrediction(userID, text string) (*Prediction, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	p := &Prediction{
		ID:        u.String(),
		UserID:    userID,
		Text:      text,
		Status:    PredictionPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.Exec(`
		INSERT INTO predictions (id, user_id, text, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Text, string(p.Status), p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert prediction: %w", err)
	}

	return p, nil
}

// ResolvePrediction marks a pending prediction correct or incorrect.
func (s *Store) ResolvePrediction(id string, status PredictionStatus) error {
	if status != PredictionCorrect && status != PredictionIncorrect {
		return fmt.Errorf("invalid resolution status %q", status)
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE predictions SET status = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), now, id)
	if err != nil {
		return fmt.Errorf("resolve prediction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prediction %s not found or already resolved", id)
	}
	return nil
}

// ListPredictions returns a user's predictions, newest first.
func (s *Store) ListPredictions(userID string) ([]Prediction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, text, status, created_at, resolved_at
		FROM predictions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var preds []Prediction
	for rows.Next() {
		var p Prediction
		var resolvedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.Text, &p.Status, &p.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if resolvedAt.Valid {
			p.ResolvedAt = &resolvedAt.Time
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// nullable maps empty strings to NULL so the schema distinguishes
// "never set" from "set to empty".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
