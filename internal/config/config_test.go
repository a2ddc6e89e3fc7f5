package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("HUDDLE_TEST_API_KEY", "sk-ant-test123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
listen:
  port: 9090
anthropic:
  api_key: ${HUDDLE_TEST_API_KEY}
  model: claude-sonnet-4-20250514
scores:
  season_start: "2025-09-02"
  cache_ttl: 30m
agent:
  max_tool_rounds: 4
data_dir: /var/lib/huddle
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Anthropic.APIKey != "sk-ant-test123" {
		t.Errorf("Anthropic.APIKey = %q, env expansion failed", cfg.Anthropic.APIKey)
	}
	if cfg.Scores.CacheTTL != 30*time.Minute {
		t.Errorf("Scores.CacheTTL = %v, want 30m", cfg.Scores.CacheTTL)
	}
	if cfg.Agent.MaxToolRounds != 4 {
		t.Errorf("Agent.MaxToolRounds = %d, want 4", cfg.Agent.MaxToolRounds)
	}
	if cfg.DataDir != "/var/lib/huddle" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Agent.LLMTimeout != 90*time.Second {
		t.Errorf("Agent.LLMTimeout = %v, want default 90s", cfg.Agent.LLMTimeout)
	}
	if cfg.Fantasy.SeasonYear != 2025 {
		t.Errorf("Fantasy.SeasonYear = %d, want default 2025", cfg.Fantasy.SeasonYear)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() on missing file should error")
	}
}

func TestFindConfigExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huddle.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig() error: %v", err)
	}
	if got != path {
		t.Errorf("FindConfig() = %q, want %q", got, path)
	}

	if _, err := FindConfig(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("FindConfig() with missing explicit path should error")
	}
}

func TestSeasonStartTime(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"valid", "2024-09-03", "2024-09-03"},
		{"empty falls back", "", "2025-09-02"},
		{"malformed falls back", "next tuesday", "2025-09-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoresConfig{SeasonStart: tt.start}
			got := s.SeasonStartTime().Format("2006-01-02")
			if got != tt.want {
				t.Errorf("SeasonStartTime() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"  WARN  ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	attr := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(LevelTrace)}
	got := ReplaceLogLevelNames(nil, attr)
	if got.Value.String() != "TRACE" {
		t.Errorf("trace level renders as %q, want TRACE", got.Value.String())
	}

	info := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(slog.LevelInfo)}
	got = ReplaceLogLevelNames(nil, info)
	if got.Value.Any().(slog.Level) != slog.LevelInfo {
		t.Error("non-trace levels must pass through unchanged")
	}
}
