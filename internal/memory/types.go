// Package memory provides the durable per-user context store: conversation
// history, fantasy credentials and state, recent-analysis memory, and
// saved predictions.
package memory

import (
	"time"

	"github.com/huddleai/huddle/internal/llm"
)

// Message is one persisted conversation turn entry.
//
// ToolCalls and ToolCallID round-trip exactly, including provider-assigned
// tool-call IDs. History that drops or reorders them no longer replays into
// the structure the LLM API expects, which breaks conversation memory of
// prior tool results.
type Message struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"` // user, assistant, tool
	Content    string         `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// LLM converts a persisted message to the wire message shape.
func (m Message) LLM() llm.Message {
	return llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}
}

// Conversation is the ordered history for one user.
type Conversation struct {
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LLMMessages replays the full history into the exact sequence the LLM
// API expects.
func (c *Conversation) LLMMessages() []llm.Message {
	out := make([]llm.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		out = append(out, m.LLM())
	}
	return out
}

// FantasyState is the closed fantasy-credential state machine.
type FantasyState string

const (
	// StateNoCredentials means no league is linked, or the user abandoned
	// team selection.
	StateNoCredentials FantasyState = "no_credentials"

	// StateTeamsOffered means a team list was shown and the user's next
	// message is expected to name their team.
	StateTeamsOffered FantasyState = "teams_offered"

	// StateRosterResolved means a roster fetch succeeded and the team
	// name is known.
	StateRosterResolved FantasyState = "roster_resolved"
)

// CanTransition reports whether the move from s to next is an allowed
// edge of the state machine.
func (s FantasyState) CanTransition(next FantasyState) bool {
	switch s {
	case StateNoCredentials:
		return next == StateTeamsOffered
	case StateTeamsOffered:
		return next == StateRosterResolved || next == StateNoCredentials
	case StateRosterResolved:
		return next == StateTeamsOffered || next == StateNoCredentials
	}
	return false
}

// FantasyContext holds a user's fantasy league linkage.
//
// Credentials and TeamName are only set after a successful roster fetch.
// The model never sees ESPNS2 or SWID; the tool dispatcher injects them.
type FantasyContext struct {
	LeagueID string       `json:"league_id,omitempty"`
	ESPNS2   string       `json:"espn_s2,omitempty"`
	SWID     string       `json:"swid,omitempty"`
	TeamName string       `json:"team_name,omitempty"`
	State    FantasyState `json:"state"`
}

// AwaitingTeamSelection reports whether the next user message is expected
// to name a fantasy team.
func (f FantasyContext) AwaitingTeamSelection() bool {
	return f.State == StateTeamsOffered
}

// Transition moves the state machine, returning false if the edge is not
// allowed. Disallowed transitions leave the context unchanged.
func (f *FantasyContext) Transition(next FantasyState) bool {
	if !f.State.CanTransition(next) {
		return false
	}
	f.State = next
	return true
}

// AnalysisContext remembers what was just discussed, so short follow-ups
// ("yes show me") can be resolved. Most recent one wins; no history.
type AnalysisContext struct {
	Kind      string    `json:"kind,omitempty"` // diagram, game, roster, video
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Empty reports whether there is no recent analysis.
func (a AnalysisContext) Empty() bool {
	return a.Kind == "" && a.Subject == ""
}

// PredictionStatus is the lifecycle state of a saved prediction.
type PredictionStatus string

const (
	PredictionPending   PredictionStatus = "pending"
	PredictionCorrect   PredictionStatus = "correct"
	PredictionIncorrect PredictionStatus = "incorrect"
)

// Prediction is a user-authored or agent-detected claim about a future
// outcome. Created explicitly, resolved explicitly, never auto-deleted.
type Prediction struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Text       string           `json:"text"`
	Status     PredictionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}

// Snapshot is everything the orchestrator loads at turn start.
type Snapshot struct {
	Conversation *Conversation
	Fantasy      FantasyContext
	Analysis     AnalysisContext
}
