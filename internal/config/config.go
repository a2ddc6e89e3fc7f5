// Package config handles Huddle configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/huddle/config.yaml, /etc/huddle/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "huddle", "config.yaml"))
	}

	paths = append(paths, "/etc/huddle/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Huddle configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Scores    ScoresConfig    `yaml:"scores"`
	Fantasy   FantasyConfig   `yaml:"fantasy"`
	Video     VideoConfig     `yaml:"video"`
	Agent     AgentConfig     `yaml:"agent"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // text or json
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ScoresConfig defines the score provider and cache settings.
type ScoresConfig struct {
	// BaseURL overrides the default public scoreboard API. Used in tests.
	BaseURL string `yaml:"base_url"`
	// SeasonStart is the Tuesday before week 1 kickoff, YYYY-MM-DD.
	// Competition weeks are derived from this date.
	SeasonStart string `yaml:"season_start"`
	// CacheTTL controls scoreboard cache freshness (default 1h).
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SeasonStartTime parses SeasonStart into a UTC date. A missing or
// malformed value falls back to the packaged default so week math never
// operates on a zero time.
func (s ScoresConfig) SeasonStartTime() time.Time {
	t, err := time.Parse("2006-01-02", s.SeasonStart)
	if err != nil {
		t, _ = time.Parse("2006-01-02", Default().Scores.SeasonStart)
	}
	return t
}

// FantasyConfig defines the fantasy roster provider settings.
type FantasyConfig struct {
	BaseURL string `yaml:"base_url"`
	// SeasonYear is the fantasy season to query (e.g. 2025).
	SeasonYear int `yaml:"season_year"`
}

// VideoConfig defines the highlight search provider settings.
type VideoConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// AgentConfig tunes the orchestrator.
type AgentConfig struct {
	// MaxToolRounds caps LLM/tool iterations per turn (default 6).
	MaxToolRounds int `yaml:"max_tool_rounds"`
	// LLMTimeout bounds a single model round-trip (default 90s).
	LLMTimeout time.Duration `yaml:"llm_timeout"`
	// ToolTimeout bounds a single tool invocation (default 15s).
	ToolTimeout time.Duration `yaml:"tool_timeout"`
	// MaxHistoryMessages limits how much history is replayed to the model.
	MaxHistoryMessages int `yaml:"max_history_messages"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Scores: ScoresConfig{
			SeasonStart: "2025-09-02",
			CacheTTL:    time.Hour,
		},
		Fantasy: FantasyConfig{
			SeasonYear: 2025,
		},
		Agent: AgentConfig{
			MaxToolRounds:      6,
			LLMTimeout:         90 * time.Second,
			ToolTimeout:        15 * time.Second,
			MaxHistoryMessages: 100,
		},
		DataDir: "data",
	}
}
