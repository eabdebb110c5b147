// Package internal provides the App struct that wires all components of the
// todo-chat system together and initializes the CLI layer.
package internal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/todo-chat/internal/cli"
	"github.com/valter-silva-au/todo-chat/internal/core"
	"github.com/valter-silva-au/todo-chat/internal/gateway"
	"github.com/valter-silva-au/todo-chat/internal/llm"
	"github.com/valter-silva-au/todo-chat/internal/mcp"
	"github.com/valter-silva-au/todo-chat/internal/observability"
	"github.com/valter-silva-au/todo-chat/internal/storage"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// App holds all service dependencies for the todo-chat system.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	TaskStore storage.TaskStore
	ConvStore storage.ConversationStore

	// Tool surface
	ToolServer *mcp.Server
	Gateway    *gateway.Gateway

	// Core services
	Intents  *core.IntentResolver
	Pipeline *core.Pipeline

	// Observability
	EventLog observability.EventLog

	closeInvoker func()
}

// NewApp creates and wires all components of the todo-chat system.
// basePath is the root directory where all data is stored (typically the
// directory containing .todochat.yaml).
func NewApp(basePath, version string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		// Use defaults if config file is unreadable.
		cfg = core.DefaultGlobalConfig()
	}
	app.Config = cfg

	// --- Storage layer ---
	app.TaskStore = storage.NewTaskStore(basePath)
	_ = app.TaskStore.Load() // Non-fatal: empty store on first use.
	app.ConvStore = storage.NewConversationStore(basePath)

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".todochat_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}

	// --- Tool surface ---
	// The tool server runs in-process; the gateway still talks to it over a
	// real client session so the wire behavior matches a remote server.
	app.ToolServer = mcp.NewServer(app.TaskStore, version)
	invoker, closeInvoker, err := mcp.ConnectInProcess(context.Background(), app.ToolServer, version)
	if err != nil {
		return nil, err
	}
	app.closeInvoker = closeInvoker
	app.Gateway = gateway.New(invoker, gateway.NewRetryPolicy(cfg.Retry), cfg.Breaker, app.EventLog)

	// --- Core services ---
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = core.DefaultFuzzyThreshold
	}
	refs := core.NewReferenceResolver(threshold)

	var assist core.Assist
	if a := llm.New(cfg.Assist); a != nil {
		assist = a
	}
	app.Intents = core.NewIntentResolver(refs, assist)

	snapshots := &snapshotAdapter{tasks: app.TaskStore}
	app.Pipeline = core.NewPipeline(app.Intents, app.Gateway, snapshots, app.ConvStore, app.EventLog, cfg.TurnTimeout)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Pipeline = app.Pipeline
	cli.TaskStore = app.TaskStore
	cli.ConvStore = app.ConvStore
	cli.ToolServer = app.ToolServer
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App: the tool client session and the
// event log file handle. Safe to call when either was never created.
func (a *App) Close() error {
	if a.closeInvoker != nil {
		a.closeInvoker()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the todo-chat data directory.
// It checks the TODOCHAT_HOME env var, then walks up from the current
// directory looking for .todochat.yaml.
func ResolveBasePath() string {
	if home := os.Getenv("TODOCHAT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".todochat.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// snapshotAdapter adapts storage.TaskStore to core.SnapshotReader.
type snapshotAdapter struct {
	tasks storage.TaskStore
}

func (a *snapshotAdapter) OpenTasks(_ context.Context, userID string) ([]models.Task, error) {
	return a.tasks.ListTasks(userID, models.FilterOpen)
}
