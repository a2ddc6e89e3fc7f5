package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConvertToAnthropic(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are Huddle."},
		{Role: "system", Content: "The user is picking a team."},
		{Role: "user", Content: "show my roster"},
		{Role: "assistant", ToolCalls: []ToolCall{
			NewToolCall("toolu_abc", "get_fantasy_roster", map[string]any{"team_name": "eagles"}),
		}},
		{Role: "tool", Content: `{"team_name":"Philly Eagles Fans"}`, ToolCallID: "toolu_abc"},
		{Role: "assistant", Content: "Here's your roster."},
	}

	converted, system := convertToAnthropic(messages)

	// Both system messages fold into one prompt; neither appears in the
	// message list.
	if system != "You are Huddle.\n\nThe user is picking a team." {
		t.Errorf("system = %q", system)
	}
	if len(converted) != 4 {
		t.Fatalf("converted %d messages, want 4", len(converted))
	}

	// Tool call becomes a tool_use block with the provider id verbatim.
	blocks, ok := converted[1].Content.([]anthropicContent)
	if !ok {
		t.Fatalf("assistant tool message content = %T", converted[1].Content)
	}
	if len(blocks) != 1 || blocks[0].Type != "tool_use" || blocks[0].ID != "toolu_abc" {
		t.Errorf("tool_use block = %+v", blocks)
	}
	if blocks[0].Name != "get_fantasy_roster" {
		t.Errorf("tool name = %q", blocks[0].Name)
	}

	// Tool result rides as a user message with the matching tool_use_id.
	resultMsg := converted[2]
	if resultMsg.Role != "user" {
		t.Errorf("tool result role = %q, want user", resultMsg.Role)
	}
	resultBlocks, ok := resultMsg.Content.([]anthropicContent)
	if !ok || len(resultBlocks) != 1 {
		t.Fatalf("tool result content = %+v", resultMsg.Content)
	}
	if resultBlocks[0].Type != "tool_result" || resultBlocks[0].ToolUseID != "toolu_abc" {
		t.Errorf("tool_result block = %+v", resultBlocks[0])
	}

	// Plain assistant text stays a string.
	if converted[3].Content != "Here's your roster." {
		t.Errorf("final assistant content = %v", converted[3].Content)
	}
}

func TestConvertToAnthropicTextWithToolCalls(t *testing.T) {
	messages := []Message{
		{
			Role:    "assistant",
			Content: "Let me check.",
			ToolCalls: []ToolCall{
				NewToolCall("toolu_1", "get_scores", nil),
			},
		},
	}

	converted, _ := convertToAnthropic(messages)
	blocks := converted[0].Content.([]anthropicContent)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v, want text + tool_use", blocks)
	}
	if blocks[0].Type != "text" || blocks[0].Text != "Let me check." {
		t.Errorf("text block = %+v", blocks[0])
	}
	if blocks[1].Type != "tool_use" {
		t.Errorf("second block = %+v", blocks[1])
	}
	// Nil arguments serialize as an empty object, not null.
	if blocks[1].Input == nil {
		t.Error("tool_use input must not be nil")
	}
}

func TestConvertToolsToAnthropic(t *testing.T) {
	tools := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "get_scores",
				"description": "Get NFL scores",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{"week": map[string]any{"type": "integer"}},
				},
			},
		},
		{"type": "function"}, // malformed, skipped
	}

	converted := convertToolsToAnthropic(tools)
	if len(converted) != 1 {
		t.Fatalf("converted %d tools, want 1", len(converted))
	}
	if converted[0].Name != "get_scores" || converted[0].Description != "Get NFL scores" {
		t.Errorf("tool = %+v", converted[0])
	}
	if converted[0].InputSchema == nil {
		t.Error("input schema missing")
	}

	if convertToolsToAnthropic(nil) != nil {
		t.Error("no tools should convert to nil, not an empty slice")
	}
}

func TestConvertFromAnthropic(t *testing.T) {
	tests := []struct {
		name           string
		resp           anthropicResponse
		wantContent    string
		wantStopReason string
		wantToolCalls  int
	}{
		{
			name: "text response",
			resp: anthropicResponse{
				Role:       "assistant",
				Content:    []anthropicContent{{Type: "text", Text: "The Bills won."}},
				StopReason: "end_turn",
			},
			wantContent:    "The Bills won.",
			wantStopReason: "stop",
		},
		{
			name: "tool use",
			resp: anthropicResponse{
				Role: "assistant",
				Content: []anthropicContent{
					{Type: "text", Text: "Checking."},
					{Type: "tool_use", ID: "toolu_9", Name: "get_scores", Input: map[string]any{"week": float64(3)}},
				},
				StopReason: "tool_use",
			},
			wantContent:    "Checking.",
			wantStopReason: "tool_use",
			wantToolCalls:  1,
		},
		{
			name: "truncated",
			resp: anthropicResponse{
				Role:       "assistant",
				Content:    []anthropicContent{{Type: "text", Text: "partial"}},
				StopReason: "max_tokens",
			},
			wantContent:    "partial",
			wantStopReason: "length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertFromAnthropic(&tt.resp)
			if got.Message.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", got.Message.Content, tt.wantContent)
			}
			if got.StopReason != tt.wantStopReason {
				t.Errorf("stop reason = %q, want %q", got.StopReason, tt.wantStopReason)
			}
			if len(got.Message.ToolCalls) != tt.wantToolCalls {
				t.Errorf("tool calls = %d, want %d", len(got.Message.ToolCalls), tt.wantToolCalls)
			}
			if tt.wantToolCalls > 0 && got.Message.ToolCalls[0].ID != "toolu_9" {
				t.Errorf("tool call id = %q", got.Message.ToolCalls[0].ID)
			}
		})
	}
}

func TestChatEndToEnd(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("anthropic-version header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "Touchdown!"}],
			"model": "test-model",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", discardLogger())
	c.SetBaseURL(srv.URL)

	resp, err := c.Chat(context.Background(), "test-model", []Message{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "score?"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Message.Content != "Touchdown!" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if gotReq.System != "Be brief." {
		t.Errorf("system = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 {
		t.Errorf("wire messages = %+v", gotReq.Messages)
	}
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"type": "rate_limit_error"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("test-key", discardLogger())
	c.SetBaseURL(srv.URL)

	if _, err := c.Chat(context.Background(), "test-model", []Message{{Role: "user", Content: "hi"}}, nil); err == nil {
		t.Fatal("non-200 response should error")
	}
}
