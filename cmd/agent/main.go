package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"foreman/internal/config"
	"foreman/internal/dispatcher"
	"foreman/internal/engine"
	"foreman/internal/memory"
	"foreman/internal/planner"
	"foreman/internal/repl"
	"foreman/internal/storage"
	"foreman/internal/tools"
	"foreman/internal/workspace"
)

func main() {
	var (
		configPath string
		root       string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&root, "cwd", "", "Workspace root override")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if strings.TrimSpace(root) == "" {
		root = cfg.Runtime.WorkspaceRoot
	}
	ws, err := workspace.New(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init workspace failed: %v\n", err)
		os.Exit(1)
	}

	storageDir, err := config.ExpandPath(cfg.Storage.BaseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve storage dir failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create storage dir failed: %v\n", err)
		os.Exit(1)
	}

	sessionID := storage.NewSessionID()
	backend, err := storage.NewSQLiteStore(filepath.Join(storageDir, "sessions.db"), sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init storage failed: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	mem := memory.NewStore(cfg.Runtime.MemoryCapacity, memory.WithBackend(backend))

	var policy planner.Policy
	if cfg.Planner.Policy == "model" {
		policy = planner.NewModelPolicy(planner.ModelConfig{
			BaseURL:   cfg.Planner.BaseURL,
			APIKey:    cfg.Planner.APIKey,
			Model:     cfg.Planner.Model,
			TimeoutMS: cfg.Planner.TimeoutMS,
		})
	}
	taskPlanner := planner.New(policy)

	fs := tools.NewFilesystem(ws)
	shell := tools.NewShell(ws.Root(), cfg.Safety.OutputLimitBytes)
	parser := tools.NewGoParser()
	runner := tools.NewTestRunner(shell, time.Duration(cfg.Safety.TestTimeoutMS)*time.Millisecond)
	git := tools.NewGit(ws)

	registry := tools.NewRegistry(
		tools.NewFilesystemTool(fs),
		tools.NewShellTool(shell, time.Duration(cfg.Safety.CommandTimeoutMS)*time.Millisecond),
		tools.NewParserTool(parser),
		tools.NewTestRunnerTool(runner),
		tools.NewGitTool(git),
	)

	disp := dispatcher.New(fs, parser, runner, dispatcher.WithLogger(log))
	eng := engine.New(taskPlanner, disp, mem,
		engine.WithLogger(log),
		engine.WithRegistry(registry),
	)

	input, inputErr := newLineInput(filepath.Join(storageDir, "repl.history"))
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
	}
	defer input.Close()

	fmt.Printf("foreman started in workspace: %s\n", ws.Root())
	fmt.Printf("session: %s planner=%s\n", sessionID, cfg.Planner.Policy)

	if err := repl.New(eng, input, os.Stdout).Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "repl failed: %v\n", err)
		os.Exit(1)
	}
	if err := mem.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "save memory failed: %v\n", err)
	}
}
