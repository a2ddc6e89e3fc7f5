package memory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/huddleai/huddle/internal/llm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "huddle.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmptyUser(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Conversation.Messages) != 0 {
		t.Errorf("new user has %d messages, want 0", len(snap.Conversation.Messages))
	}
	if snap.Fantasy.State != StateNoCredentials {
		t.Errorf("new user fantasy state = %q, want %q", snap.Fantasy.State, StateNoCredentials)
	}
	if !snap.Analysis.Empty() {
		t.Errorf("new user analysis should be empty, got %+v", snap.Analysis)
	}
}

func TestSaveTurnRoundTrip(t *testing.T) {
	s := newTestStore(t)

	call := llm.NewToolCall("toolu_01abc", "get_scores", map[string]any{"week": 8})
	msgs := []Message{
		{Role: "user", Content: "scores for week 8?"},
		{Role: "assistant", Content: "", ToolCalls: []llm.ToolCall{call}},
		{Role: "tool", Content: `{"week":8}`, ToolCallID: "toolu_01abc"},
		{Role: "assistant", Content: "Here are the week 8 scores."},
	}
	fc := FantasyContext{State: StateNoCredentials}
	ac := AnalysisContext{Kind: "game", Subject: "week 8"}

	if err := s.SaveTurn("alice", msgs, fc, ac); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	snap, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := snap.Conversation.Messages
	if len(got) != 4 {
		t.Fatalf("loaded %d messages, want 4", len(got))
	}

	for i, m := range got {
		if m.Role != msgs[i].Role {
			t.Errorf("message %d role = %q, want %q", i, m.Role, msgs[i].Role)
		}
		if m.Content != msgs[i].Content {
			t.Errorf("message %d content = %q, want %q", i, m.Content, msgs[i].Content)
		}
		if m.ID == "" {
			t.Errorf("message %d was not assigned an id", i)
		}
		if m.Timestamp.IsZero() {
			t.Errorf("message %d was not assigned a timestamp", i)
		}
	}

	// Provider tool-call IDs survive the round trip exactly.
	if len(got[1].ToolCalls) != 1 {
		t.Fatalf("assistant message lost its tool calls: %+v", got[1])
	}
	tc := got[1].ToolCalls[0]
	if tc.ID != "toolu_01abc" {
		t.Errorf("tool call id = %q, want toolu_01abc", tc.ID)
	}
	if tc.Function.Name != "get_scores" {
		t.Errorf("tool call name = %q, want get_scores", tc.Function.Name)
	}
	if got[2].ToolCallID != "toolu_01abc" {
		t.Errorf("tool result ToolCallID = %q, want toolu_01abc", got[2].ToolCallID)
	}

	if snap.Analysis.Kind != "game" || snap.Analysis.Subject != "week 8" {
		t.Errorf("analysis context = %+v", snap.Analysis)
	}
}

func TestSaveTurnAppendsInOrder(t *testing.T) {
	s := newTestStore(t)

	first := []Message{
		{Role: "user", Content: "turn one"},
		{Role: "assistant", Content: "reply one"},
	}
	second := []Message{
		{Role: "user", Content: "turn two"},
		{Role: "assistant", Content: "reply two"},
	}

	if err := s.SaveTurn("bob", first, FantasyContext{State: StateNoCredentials}, AnalysisContext{}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTurn("bob", second, FantasyContext{State: StateNoCredentials}, AnalysisContext{}); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load("bob")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"turn one", "reply one", "turn two", "reply two"}
	if len(snap.Conversation.Messages) != len(want) {
		t.Fatalf("got %d messages, want %d", len(snap.Conversation.Messages), len(want))
	}
	for i, m := range snap.Conversation.Messages {
		if m.Content != want[i] {
			t.Errorf("message %d = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestSaveTurnAtomic(t *testing.T) {
	s := newTestStore(t)

	// A duplicate explicit ID violates the primary key mid-transaction.
	// The earlier messages in the same batch must not survive.
	msgs := []Message{
		{ID: "dup", Role: "user", Content: "first"},
		{ID: "dup", Role: "assistant", Content: "second"},
	}

	err := s.SaveTurn("carol", msgs, FantasyContext{State: StateTeamsOffered, LeagueID: "99"}, AnalysisContext{})
	if err == nil {
		t.Fatal("SaveTurn with duplicate message IDs should fail")
	}
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Errorf("error type = %T, want *SaveError", err)
	}

	snap, loadErr := s.Load("carol")
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if len(snap.Conversation.Messages) != 0 {
		t.Errorf("failed turn persisted %d messages, want 0", len(snap.Conversation.Messages))
	}
	if snap.Fantasy.State != StateNoCredentials || snap.Fantasy.LeagueID != "" {
		t.Errorf("failed turn persisted fantasy context: %+v", snap.Fantasy)
	}
}

func TestClearPreservesFantasyAndPredictions(t *testing.T) {
	s := newTestStore(t)

	fc := FantasyContext{LeagueID: "12345", ESPNS2: "s2cookie", SWID: "{swid}", TeamName: "Philly Eagles Fans", State: StateRosterResolved}
	msgs := []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	if err := s.SaveTurn("dan", msgs, fc, AnalysisContext{}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePrediction("dan", "The Jets will win out"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear("dan"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	snap, err := s.Load("dan")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Conversation.Messages) != 0 {
		t.Errorf("Clear left %d messages", len(snap.Conversation.Messages))
	}
	if snap.Fantasy.State != StateRosterResolved || snap.Fantasy.TeamName != "Philly Eagles Fans" {
		t.Errorf("Clear wiped fantasy context: %+v", snap.Fantasy)
	}
	if snap.Fantasy.ESPNS2 != "s2cookie" || snap.Fantasy.SWID != "{swid}" {
		t.Errorf("Clear wiped credentials")
	}

	preds, err := s.ListPredictions("dan")
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 1 {
		t.Errorf("Clear left %d predictions, want 1", len(preds))
	}
}

func TestSetFantasyCredentials(t *testing.T) {
	s := newTestStore(t)

	fc := FantasyContext{LeagueID: "111", TeamName: "Old Team", State: StateRosterResolved}
	if err := s.SaveTurn("erin", nil, fc, AnalysisContext{}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetFantasyCredentials("erin", "222", "newS2", "{newSWID}"); err != nil {
		t.Fatalf("SetFantasyCredentials: %v", err)
	}

	snap, err := s.Load("erin")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Fantasy.LeagueID != "222" || snap.Fantasy.ESPNS2 != "newS2" || snap.Fantasy.SWID != "{newSWID}" {
		t.Errorf("credentials not replaced: %+v", snap.Fantasy)
	}
	if snap.Fantasy.TeamName != "" {
		t.Errorf("team name should reset on new credentials, got %q", snap.Fantasy.TeamName)
	}
	if snap.Fantasy.State != StateNoCredentials {
		t.Errorf("state = %q, want %q after relink", snap.Fantasy.State, StateNoCredentials)
	}
}

func TestPredictions(t *testing.T) {
	s := newTestStore(t)

	p1, err := s.CreatePrediction("frank", "Chiefs will beat the Raiders")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := s.CreatePrediction("frank", "Barkley will rush for 150")
	if err != nil {
		t.Fatal(err)
	}

	if p1.Status != PredictionPending {
		t.Errorf("new prediction status = %q, want pending", p1.Status)
	}

	if err := s.ResolvePrediction(p1.ID, PredictionCorrect); err != nil {
		t.Fatalf("ResolvePrediction: %v", err)
	}

	// Resolving twice fails: resolution is pending-only.
	if err := s.ResolvePrediction(p1.ID, PredictionIncorrect); err == nil {
		t.Error("re-resolving a resolved prediction should fail")
	}
	// So does an unknown id or a non-terminal status.
	if err := s.ResolvePrediction("missing", PredictionCorrect); err == nil {
		t.Error("resolving an unknown prediction should fail")
	}
	if err := s.ResolvePrediction(p2.ID, PredictionPending); err == nil {
		t.Error("resolving to pending should fail")
	}

	preds, err := s.ListPredictions("frank")
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 2 {
		t.Fatalf("ListPredictions returned %d, want 2", len(preds))
	}

	byID := map[string]Prediction{}
	for _, p := range preds {
		byID[p.ID] = p
	}
	if got := byID[p1.ID]; got.Status != PredictionCorrect || got.ResolvedAt == nil {
		t.Errorf("resolved prediction = %+v", got)
	}
	if got := byID[p2.ID]; got.Status != PredictionPending || got.ResolvedAt != nil {
		t.Errorf("pending prediction = %+v", got)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to FantasyState
		want     bool
	}{
		{StateNoCredentials, StateTeamsOffered, true},
		{StateNoCredentials, StateRosterResolved, false},
		{StateNoCredentials, StateNoCredentials, false},
		{StateTeamsOffered, StateRosterResolved, true},
		{StateTeamsOffered, StateNoCredentials, true},
		{StateTeamsOffered, StateTeamsOffered, false},
		{StateRosterResolved, StateTeamsOffered, true},
		{StateRosterResolved, StateNoCredentials, true},
		{StateRosterResolved, StateRosterResolved, false},
		{FantasyState("bogus"), StateTeamsOffered, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	fc := FantasyContext{State: StateNoCredentials}

	if fc.Transition(StateRosterResolved) {
		t.Error("no_credentials -> roster_resolved should be rejected")
	}
	if fc.State != StateNoCredentials {
		t.Errorf("rejected transition mutated state to %q", fc.State)
	}

	if !fc.Transition(StateTeamsOffered) {
		t.Fatal("no_credentials -> teams_offered should be allowed")
	}
	if !fc.AwaitingTeamSelection() {
		t.Error("AwaitingTeamSelection should be true in teams_offered")
	}
}
