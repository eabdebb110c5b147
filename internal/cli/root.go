package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/todo-chat/internal/core"
	"github.com/valter-silva-au/todo-chat/internal/mcp"
	"github.com/valter-silva-au/todo-chat/internal/observability"
	"github.com/valter-silva-au/todo-chat/internal/storage"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// Package-level dependencies wired by the App at startup.
var (
	BasePath   string
	Config     *models.GlobalConfig
	Pipeline   *core.Pipeline
	TaskStore  storage.TaskStore
	ConvStore  storage.ConversationStore
	ToolServer *mcp.Server
	EventLog   observability.EventLog
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "tdc",
	Short: "todo-chat - natural language task management",
	Long: `todo-chat (tdc) turns free-text requests like "add buy milk and mark the
dentist task done" into task operations. It resolves intents and fuzzy task
references locally, then executes each operation through a resilient tool
gateway with retries and a circuit breaker.

It provides a one-shot chat command, an interactive chat session, an HTTP
API server, and a stdio MCP server exposing the task tools directly.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tdc %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
