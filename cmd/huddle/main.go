// Huddle is a conversational NFL assistant.
//
// It exposes a small HTTP API for chat turns, fantasy league linkage,
// and prediction tracking, plus a CLI for one-shot questions.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	huddle serve             Start the API server
//	huddle init [dir]        Write a default config file
//	huddle ask <question>    Ask a single question (for testing)
//	huddle version           Print version and build information
//	huddle -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/huddleai/huddle/internal/agent"
	"github.com/huddleai/huddle/internal/api"
	"github.com/huddleai/huddle/internal/buildinfo"
	"github.com/huddleai/huddle/internal/config"
	"github.com/huddleai/huddle/internal/diagram"
	"github.com/huddleai/huddle/internal/fantasy"
	"github.com/huddleai/huddle/internal/llm"
	"github.com/huddleai/huddle/internal/memory"
	"github.com/huddleai/huddle/internal/scores"
	"github.com/huddleai/huddle/internal/tools"
	"github.com/huddleai/huddle/internal/video"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment and delegates to [run] so the
// full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the huddle command. Arguments are
// parsed by hand; the flag package's package-level globals interfere
// with parallel tests and the surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// A .env file is a development convenience; absence is normal.
	_ = godotenv.Load()

	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: huddle ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Huddle - Conversational NFL Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: huddle [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Write a default config file (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	return nil
}

// defaultConfigYAML is written by "huddle init". Secrets come from the
// environment; the file stays committable.
const defaultConfigYAML = `listen:
  port: 8080

anthropic:
  api_key: ${ANTHROPIC_API_KEY}
  model: claude-sonnet-4-20250514

scores:
  season_start: "2025-09-02"
  cache_ttl: 1h

fantasy:
  season_year: 2025

video:
  api_key: ${YOUTUBE_API_KEY}

agent:
  max_tool_rounds: 6
  llm_timeout: 90s
  tool_timeout: 15s
  max_history_messages: 100

data_dir: data
log_level: info
log_format: text
`

// runInit writes a default config.yaml into dir, refusing to overwrite.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

// runAsk boots the full stack against a temporary database and processes
// a single question. Useful for smoke tests without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	logger := newLogger(stderr, slog.LevelWarn, "text")
	question := strings.Join(args, " ")

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "path", cfgPath)

	tmpDir, err := os.MkdirTemp("", "huddle-ask-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	store, err := memory.NewStore(filepath.Join(tmpDir, "huddle.db"))
	if err != nil {
		return fmt.Errorf("open memory database: %w", err)
	}
	defer store.Close()

	orch, err := buildOrchestrator(cfg, store, tmpDir, logger)
	if err != nil {
		return err
	}

	reply, err := orch.HandleTurn(ctx, "cli", question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, reply.Text)
	for _, m := range reply.Media {
		fmt.Fprintf(stdout, "[%s] %s%s\n", m.Type, m.Path, m.URL)
	}
	return nil
}

// runServe is the primary operating mode: load config, open the store,
// wire the adapters and orchestrator, serve HTTP until SIGINT/SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Huddle", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level and format are
	// known; the startup banner above used the bootstrap defaults.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Anthropic.Model,
		"data_dir", cfg.DataDir,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, "huddle.db")
	store, err := memory.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open memory database %s: %w", dbPath, err)
	}
	defer store.Close()
	logger.Info("memory database opened", "path", dbPath)

	mediaDir := filepath.Join(cfg.DataDir, "diagrams")
	orch, err := buildOrchestrator(cfg, store, mediaDir, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, orch, store, mediaDir, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by all
	// components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Huddle stopped")
	return nil
}

// buildOrchestrator wires the adapters, tool registry, LLM client, and
// orchestrator from config. mediaDir receives rendered diagrams.
func buildOrchestrator(cfg *config.Config, store *memory.Store, mediaDir string, logger *slog.Logger) (*agent.Orchestrator, error) {
	apiKey := cfg.Anthropic.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api_key is not configured (set ANTHROPIC_API_KEY)")
	}

	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory %s: %w", mediaDir, err)
	}

	llmClient := llm.NewAnthropicClient(apiKey, logger)

	scoresClient := scores.NewClient(cfg.Scores.BaseURL, logger)
	cache := scores.NewCache(scoresClient, cfg.Scores.SeasonStartTime(), cfg.Scores.CacheTTL, logger)
	fantasyClient := fantasy.NewClient(cfg.Fantasy.BaseURL, cfg.Fantasy.SeasonYear, logger)

	videoKey := cfg.Video.APIKey
	if videoKey == "" {
		videoKey = os.Getenv("YOUTUBE_API_KEY")
	}
	videoClient := video.NewClient(cfg.Video.BaseURL, videoKey, logger)
	renderer := diagram.NewRenderer(mediaDir, logger)

	registry := tools.NewRegistry(cache, scoresClient, fantasyClient, videoClient, renderer, logger)
	return agent.New(logger, store, llmClient, registry, cfg.Anthropic.Model, cfg.Agent), nil
}

// newLogger creates a structured logger writing to w at the given level
// and format. Format must be "text" or "json"; anything else falls back
// to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty that exact path is used. With no config file anywhere the
// packaged defaults apply; secrets then come from the environment.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
