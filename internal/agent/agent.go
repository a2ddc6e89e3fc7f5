// Package agent implements the turn-processing core: one user message in,
// zero or more LLM/tool rounds, one reply out, context persisted.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/huddleai/huddle/internal/config"
	"github.com/huddleai/huddle/internal/llm"
	"github.com/huddleai/huddle/internal/memory"
	"github.com/huddleai/huddle/internal/predict"
	"github.com/huddleai/huddle/internal/tools"
)

// Reply is the result of one completed turn.
type Reply struct {
	Text        string          `json:"text"`
	Media       []Media         `json:"media,omitempty"`
	Predictions []predict.Draft `json:"predictions_detected,omitempty"`
}

// Orchestrator drives turns. Safe for concurrent use; turns for the same
// user are serialized internally.
type Orchestrator struct {
	logger   *slog.Logger
	store    *memory.Store
	llm      llm.Client
	registry *tools.Registry
	model    string

	maxRounds   int
	llmTimeout  time.Duration
	toolTimeout time.Duration
	maxHistory  int

	// Replaceable classifiers. New installs the rule-based defaults.
	Detector predict.Detector
	FollowUp predict.FollowUpClassifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an orchestrator. Zero-valued cfg fields fall back to the
// package defaults.
func New(logger *slog.Logger, store *memory.Store, client llm.Client, registry *tools.Registry, model string, cfg config.AgentConfig) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 6
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 90 * time.Second
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 15 * time.Second
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = 100
	}
	return &Orchestrator{
		logger:      logger,
		store:       store,
		llm:         client,
		registry:    registry,
		model:       model,
		maxRounds:   cfg.MaxToolRounds,
		llmTimeout:  cfg.LLMTimeout,
		toolTimeout: cfg.ToolTimeout,
		maxHistory:  cfg.MaxHistoryMessages,
		Detector:    predict.RuleDetector{},
		FollowUp:    predict.RuleFollowUp{},
		locks:       make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user turn lock, creating it on first use.
// Locks are never removed; the per-user footprint is one mutex.
func (o *Orchestrator) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l := o.locks[userID]
	if l == nil {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// HandleTurn processes one user message and returns the reply.
//
// A store load failure or save failure fails the turn with an error and
// persists nothing. An LLM failure produces an apologetic Reply, also
// persisting nothing, so a retry never sees a half-turn. Tool failures
// are fed back to the model inside the turn and are not fatal.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if userID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}
	if text == "" {
		return nil, fmt.Errorf("message must not be empty")
	}

	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	snap, err := o.store.Load(userID)
	if err != nil {
		o.logger.Error("context load failed", "user", userID, "error", err)
		return nil, err
	}

	fc := snap.Fantasy
	wasAwaiting := fc.AwaitingTeamSelection()
	tc := &tools.TurnContext{UserID: userID, Fantasy: fc}

	history := trimHistory(snap.Conversation.LLMMessages(), o.maxHistory)

	messages := make([]llm.Message, 0, len(history)+4)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	switch {
	case wasAwaiting:
		messages = append(messages, llm.Message{Role: "system", Content: teamSelectionHint})
	case !snap.Analysis.Empty() && o.FollowUp.IsFollowUp(text):
		messages = append(messages, llm.Message{Role: "system", Content: analysisHint(snap.Analysis)})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: text})

	newMessages := []memory.Message{{
		Role:      "user",
		Content:   text,
		Timestamp: time.Now().UTC(),
	}}

	o.logger.Info("turn started",
		"user", userID,
		"history", len(history),
		"awaiting_team", wasAwaiting,
	)

	toolDefs := o.registry.List()
	var final llm.Message
	haveFinal := false

	for round := 0; round < o.maxRounds && !haveFinal; round++ {
		resp, err := o.chat(ctx, messages, toolDefs)
		if err != nil {
			return o.apologize(ctx, userID, round, err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			final = resp.Message
			haveFinal = true
			break
		}

		messages = append(messages, resp.Message)
		newMessages = append(newMessages, fromLLM(resp.Message))

		for _, call := range resp.Message.ToolCalls {
			result, err := o.execute(ctx, tc, call, round)
			if err != nil {
				// Parent context gone; nothing persisted yet, safe to drop.
				return nil, err
			}
			toolMsg := llm.Message{Role: "tool", Content: result, ToolCallID: call.ID}
			messages = append(messages, toolMsg)
			newMessages = append(newMessages, fromLLM(toolMsg))
		}

		if tc.TeamsOffered != nil {
			// Team list shown: stop the loop and let the model ask the
			// user which team is theirs.
			resp, err := o.chat(ctx, messages, nil)
			if err != nil {
				return o.apologize(ctx, userID, round, err)
			}
			final = resp.Message
			haveFinal = true
		}
	}

	if !haveFinal {
		o.logger.Warn("tool round cap reached", "user", userID, "max_rounds", o.maxRounds)
		resp, err := o.chat(ctx, messages, nil)
		if err != nil {
			return o.apologize(ctx, userID, o.maxRounds, err)
		}
		final = resp.Message
	}

	newMessages = append(newMessages, memory.Message{
		Role:      "assistant",
		Content:   final.Content,
		Timestamp: time.Now().UTC(),
	})

	o.advanceFantasy(&fc, tc, wasAwaiting, userID)

	ac := snap.Analysis
	if tc.Analysis != nil {
		ac = *tc.Analysis
	}

	if err := o.store.SaveTurn(userID, newMessages, fc, ac); err != nil {
		o.logger.Error("turn save failed", "user", userID, "error", err)
		return nil, err
	}

	reply := &Reply{
		Text:        final.Content,
		Media:       extractMedia(final.Content, tc),
		Predictions: o.detectPredictions(text, final.Content),
	}

	o.logger.Info("turn completed",
		"user", userID,
		"messages", len(newMessages),
		"media", len(reply.Media),
		"predictions", len(reply.Predictions),
		"fantasy_state", string(fc.State),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return reply, nil
}

// chat runs one bounded model round-trip.
func (o *Orchestrator) chat(ctx context.Context, messages []llm.Message, toolDefs []map[string]any) (*llm.ChatResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()
	return o.llm.Chat(cctx, o.model, messages, toolDefs)
}

// execute runs one tool call under the tool deadline.
func (o *Orchestrator) execute(ctx context.Context, tc *tools.TurnContext, call llm.ToolCall, round int) (string, error) {
	argsJSON := ""
	if call.Function.Arguments != nil {
		data, _ := json.Marshal(call.Function.Arguments)
		argsJSON = string(data)
	}

	o.logger.Info("tool exec",
		"user", tc.UserID,
		"round", round,
		"tool", call.Function.Name,
	)

	tctx, cancel := context.WithTimeout(ctx, o.toolTimeout)
	defer cancel()
	return o.registry.Execute(tctx, tc, call.Function.Name, argsJSON)
}

// apologize converts an LLM failure into a user-facing reply. The turn
// is not persisted. A dead parent context fails the turn instead; the
// caller is gone and there is nobody to apologize to.
func (o *Orchestrator) apologize(ctx context.Context, userID string, round int, err error) (*Reply, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	o.logger.Error("llm call failed", "user", userID, "round", round, "error", err)
	return &Reply{Text: apologyText}, nil
}

// advanceFantasy applies this turn's fantasy outcomes to the state
// machine.
func (o *Orchestrator) advanceFantasy(fc *memory.FantasyContext, tc *tools.TurnContext, wasAwaiting bool, userID string) {
	if tc.UsedLeagueID != "" {
		fc.LeagueID = tc.UsedLeagueID
	}

	switch {
	case tc.ResolvedTeam != "":
		fc.TeamName = tc.ResolvedTeam
		if !fc.Transition(memory.StateRosterResolved) {
			// Direct resolution without a visible team list: the offer
			// happened inside this turn.
			fc.Transition(memory.StateTeamsOffered)
			fc.Transition(memory.StateRosterResolved)
		}
	case tc.TeamsOffered != nil:
		fc.Transition(memory.StateTeamsOffered)
	case wasAwaiting:
		// Awaiting a team choice, but the turn ended without one: the
		// user changed topic. Abandon the selection.
		o.logger.Debug("team selection abandoned", "user", userID)
		fc.Transition(memory.StateNoCredentials)
	}
}

func (o *Orchestrator) detectPredictions(userText, answer string) []predict.Draft {
	var drafts []predict.Draft
	for _, s := range o.Detector.Detect(userText) {
		drafts = append(drafts, predict.Draft{Text: s, Source: "user"})
	}
	for _, s := range o.Detector.Detect(answer) {
		drafts = append(drafts, predict.Draft{Text: s, Source: "assistant"})
	}
	return drafts
}

// fromLLM converts a wire message into its persisted form, preserving
// tool calls and provider tool-call IDs so history replays losslessly.
func fromLLM(m llm.Message) memory.Message {
	return memory.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Timestamp:  time.Now().UTC(),
	}
}

// trimHistory bounds replayed history, cutting only at a user-turn
// boundary so a tool call is never separated from its results.
func trimHistory(msgs []llm.Message, max int) []llm.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	start := len(msgs) - max
	for start < len(msgs) && msgs[start].Role != "user" {
		start++
	}
	return msgs[start:]
}
