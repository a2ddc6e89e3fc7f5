// Package tools defines the tools available to the agent.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huddleai/huddle/internal/diagram"
	"github.com/huddleai/huddle/internal/fantasy"
	"github.com/huddleai/huddle/internal/memory"
	"github.com/huddleai/huddle/internal/scores"
	"github.com/huddleai/huddle/internal/video"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     func(ctx context.Context, tc *TurnContext, args map[string]any) (string, error) `json:"-"`
}

// TurnContext carries per-turn state across tool dispatches. The
// dispatcher reads fantasy credentials from it — the model never sees
// them — and handlers record outcomes here for the orchestrator to
// persist after the turn.
type TurnContext struct {
	UserID  string
	Fantasy memory.FantasyContext

	// Set by handlers as the turn progresses.
	TeamsOffered []string                 // roster call needs a team choice
	ResolvedTeam string                   // roster fetch succeeded for this team
	UsedLeagueID string                   // league the fantasy provider answered for
	Analysis     *memory.AnalysisContext  // most recent analyzable subject
	Diagrams     []diagram.ImageReference // diagrams rendered this turn
	Video        *video.Result            // highlight found this turn
}

func (tc *TurnContext) setAnalysis(kind, subject, detail string) {
	tc.Analysis = &memory.AnalysisContext{
		Kind:      kind,
		Subject:   subject,
		Detail:    detail,
		UpdatedAt: time.Now().UTC(),
	}
}

// Registry holds available tools and the adapters they call.
type Registry struct {
	tools    map[string]*Tool
	cache    *scores.Cache
	scores   *scores.Client
	fantasy  *fantasy.Client
	video    *video.Client
	diagrams *diagram.Renderer
	logger   *slog.Logger
}

// NewRegistry creates a tool registry wired to the given adapters. Any
// adapter may be nil; its tools then report provider_unavailable.
func NewRegistry(cache *scores.Cache, sc *scores.Client, fc *fantasy.Client, vc *video.Client, dr *diagram.Renderer, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:    make(map[string]*Tool),
		cache:    cache,
		scores:   sc,
		fantasy:  fc,
		video:    vc,
		diagrams: dr,
		logger:   logger,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "get_scores",
		Description: "Get NFL scores for a week. Omit week for the current week. Returns final and in-progress scores for every game.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"week": map[string]any{
					"type":        "integer",
					"description": "Season week 1-18. Omit for the current week.",
				},
			},
		},
		Handler: r.handleGetScores,
	})

	r.Register(&Tool{
		Name:        "get_game_detail",
		Description: "Get play-by-play detail for one game: scoring plays, drive summaries, and the box score. Use the game_id from get_scores.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"game_id": map[string]any{
					"type":        "string",
					"description": "The game ID from a get_scores result",
				},
			},
			"required": []string{"game_id"},
		},
		Handler: r.handleGameDetail,
	})

	r.Register(&Tool{
		Name:        "get_team_stats",
		Description: "Get a team's season record. Matches on any part of the team name (e.g. 'chiefs', 'kansas city').",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"team_name": map[string]any{
					"type":        "string",
					"description": "Full or partial NFL team name",
				},
			},
			"required": []string{"team_name"},
		},
		Handler: r.handleTeamStats,
	})

	r.Register(&Tool{
		Name:        "get_fantasy_roster",
		Description: "Get the user's fantasy football roster. If the league has multiple teams and none is selected yet, returns the team list so you can ask the user which is theirs.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"team_name": map[string]any{
					"type":        "string",
					"description": "The user's team name, once they have told you which team is theirs",
				},
				"league_id": map[string]any{
					"type":        "string",
					"description": "ESPN league ID, if the user provided one this conversation",
				},
			},
		},
		Handler: r.handleFantasyRoster,
	})

	r.Register(&Tool{
		Name:        "get_fantasy_standings",
		Description: "Get the win/loss standings for the user's fantasy league.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleFantasyStandings,
	})

	r.Register(&Tool{
		Name:        "search_highlights",
		Description: "Search for a game or play highlight video. Returns an embeddable video, or a direct search link when the provider is unavailable.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for (teams, player, play). 'highlights' is appended automatically.",
				},
			},
			"required": []string{"query"},
		},
		Handler: r.handleSearchHighlights,
	})

	r.Register(&Tool{
		Name:        "render_diagram",
		Description: "Render a football diagram as an image. Embed the returned path in your answer as markdown: ![alt](path). Kinds: route (slant, post, wheel, ...), play (formations), coverage (cover 1-4).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"kind": map[string]any{
					"type":        "string",
					"description": "Diagram kind",
					"enum":        []string{"route", "play", "coverage"},
				},
				"name": map[string]any{
					"type":        "string",
					"description": "Route, formation, or coverage name (e.g. slant, shotgun, cover 2)",
				},
			},
			"required": []string{"kind", "name"},
		},
		Handler: r.handleRenderDiagram,
	})
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tools for the LLM.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, t := range r.tools {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with the given JSON arguments. Tool-level
// failures are encoded as structured error results for the model to
// recover from; the returned error is non-nil only when the turn itself
// is being abandoned (parent context canceled).
func (r *Registry) Execute(ctx context.Context, tc *TurnContext, name string, argsJSON string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		r.logger.Warn("unknown tool requested", "tool", name)
		te := &ToolError{Code: CodeUnknownTool, Message: fmt.Sprintf("unknown tool %q", name)}
		return te.ResultJSON(), nil
	}

	var args map[string]any
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return Validationf("arguments are not valid JSON: %v", err).ResultJSON(), nil
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	if verr := validateArgs(tool.Parameters, args); verr != nil {
		r.logger.Debug("tool argument validation failed", "tool", name, "error", verr.Message)
		return verr.ResultJSON(), nil
	}

	result, err := tool.Handler(ctx, tc, args)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return "", err
		}
		te := mapError(err)
		r.logger.Warn("tool failed", "tool", name, "code", te.Code, "error", err)
		return te.ResultJSON(), nil
	}
	return result, nil
}

// mapError converts an adapter error into the typed error vocabulary the
// model is prompted to understand.
func mapError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Code: CodeProviderTimeout, Message: "the data provider timed out; try again or answer from what you already have"}
	case errors.Is(err, fantasy.ErrCredentialsInvalid):
		return &ToolError{Code: CodeCredentialsInvalid, Message: "fantasy credentials are missing or rejected; ask the user for their ESPN league ID and credentials"}
	case errors.Is(err, fantasy.ErrLeagueNotFound):
		return &ToolError{Code: CodeLeagueNotFound, Message: "no fantasy league with that ID; ask the user to double-check their league ID"}
	case errors.Is(err, fantasy.ErrRateLimited):
		return &ToolError{Code: CodeRateLimited, Message: "the fantasy provider is rate limiting us; wait before retrying"}
	case errors.Is(err, scores.ErrProviderUnavailable):
		return &ToolError{Code: CodeProviderUnavailable, Message: "the score provider is unavailable right now"}
	}
	return &ToolError{Code: CodeProviderUnavailable, Message: err.Error()}
}

func resultJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"encoding failed: %s"}`, err)
	}
	return string(b)
}

// Tool handlers

func (r *Registry) handleGetScores(ctx context.Context, _ *TurnContext, args map[string]any) (string, error) {
	week, ok := intArg(args, "week")
	if ok && (week < 1 || week > 18) {
		return "", Validationf("week must be 1-18, got %d", week)
	}
	if r.cache == nil {
		return "", scores.ErrProviderUnavailable
	}

	sb, err := r.cache.Get(ctx, week)
	if err != nil {
		return "", err
	}
	return resultJSON(sb), nil
}

func (r *Registry) handleGameDetail(ctx context.Context, tc *TurnContext, args map[string]any) (string, error) {
	if r.scores == nil {
		return "", scores.ErrProviderUnavailable
	}
	gameID := stringArg(args, "game_id")
	if gameID == "" {
		return "", Validationf("game_id must not be empty")
	}

	detail, err := r.scores.GameDetail(ctx, gameID)
	if err != nil {
		return "", err
	}
	tc.setAnalysis("game", detail.Matchup, detail.Status)
	return resultJSON(detail), nil
}

func (r *Registry) handleTeamStats(ctx context.Context, _ *TurnContext, args map[string]any) (string, error) {
	if r.scores == nil {
		return "", scores.ErrProviderUnavailable
	}
	name := stringArg(args, "team_name")
	if name == "" {
		return "", Validationf("team_name must not be empty")
	}

	record, err := r.scores.TeamStats(ctx, name)
	if err != nil {
		return "", err
	}
	return resultJSON(record), nil
}

func (r *Registry) handleFantasyRoster(ctx context.Context, tc *TurnContext, args map[string]any) (string, error) {
	if r.fantasy == nil {
		return "", scores.ErrProviderUnavailable
	}

	leagueID := stringArg(args, "league_id")
	if leagueID == "" {
		leagueID = tc.Fantasy.LeagueID
	}
	if leagueID == "" {
		return "", fantasy.ErrCredentialsInvalid
	}
	// Public leagues work without cookies; the provider rejects private
	// ones with a 401/403, which maps back to credentials_invalid anyway.
	creds := fantasy.Credentials{ESPNS2: tc.Fantasy.ESPNS2, SWID: tc.Fantasy.SWID}

	teamName := stringArg(args, "team_name")
	if teamName == "" {
		teamName = tc.Fantasy.TeamName
	}

	outcome, err := r.fantasy.Roster(ctx, leagueID, creds, teamName)
	if err != nil {
		return "", err
	}

	tc.UsedLeagueID = leagueID
	if outcome.TeamsOffered != nil {
		tc.TeamsOffered = outcome.TeamsOffered
		return resultJSON(map[string]any{
			"teams": outcome.TeamsOffered,
			"note":  "multiple teams in this league; ask the user which team is theirs and call this tool again with team_name",
		}), nil
	}

	tc.ResolvedTeam = outcome.Snapshot.TeamName
	tc.setAnalysis("roster", outcome.Snapshot.TeamName, outcome.Snapshot.LeagueName)
	return resultJSON(outcome.Snapshot), nil
}

func (r *Registry) handleFantasyStandings(ctx context.Context, tc *TurnContext, _ map[string]any) (string, error) {
	if r.fantasy == nil {
		return "", scores.ErrProviderUnavailable
	}

	if tc.Fantasy.LeagueID == "" {
		return "", fantasy.ErrCredentialsInvalid
	}
	creds := fantasy.Credentials{ESPNS2: tc.Fantasy.ESPNS2, SWID: tc.Fantasy.SWID}

	standings, err := r.fantasy.Standings(ctx, tc.Fantasy.LeagueID, creds)
	if err != nil {
		return "", err
	}
	return resultJSON(map[string]any{"standings": standings}), nil
}

func (r *Registry) handleSearchHighlights(ctx context.Context, tc *TurnContext, args map[string]any) (string, error) {
	if r.video == nil {
		return "", scores.ErrProviderUnavailable
	}
	query := stringArg(args, "query")
	if query == "" {
		return "", Validationf("query must not be empty")
	}

	outcome, err := r.video.Search(ctx, query)
	if err != nil {
		return "", err
	}

	if outcome.Video == nil {
		return resultJSON(map[string]any{
			"fallback_link": outcome.FallbackLink,
			"note":          "no embeddable highlight found; offer the user this search link instead",
		}), nil
	}

	tc.Video = outcome.Video
	tc.setAnalysis("video", outcome.Video.Title, outcome.Video.Channel)
	return resultJSON(outcome.Video), nil
}

func (r *Registry) handleRenderDiagram(_ context.Context, tc *TurnContext, args map[string]any) (string, error) {
	if r.diagrams == nil {
		return "", scores.ErrProviderUnavailable
	}
	kind := diagram.Kind(stringArg(args, "kind"))
	name := stringArg(args, "name")
	if name == "" {
		return "", Validationf("name must not be empty")
	}

	ref, err := r.diagrams.Render(kind, name)
	if err != nil {
		return "", Validationf("%v", err)
	}

	tc.Diagrams = append(tc.Diagrams, *ref)
	tc.setAnalysis("diagram", name, string(kind))
	return resultJSON(ref), nil
}
