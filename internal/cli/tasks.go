package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

var (
	tasksUser   string
	tasksStatus string
)

var taskOpenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
var taskDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
var taskDimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks directly, bypassing the chat pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}

		filter := models.ListFilter(tasksStatus)
		if !filter.Valid() {
			return fmt.Errorf("invalid status %q (want all, open, or completed)", tasksStatus)
		}

		tasks, err := TaskStore.ListTasks(tasksUser, filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
		for _, t := range tasks {
			marker := taskOpenStyle.Render("[ ]")
			if t.Status == models.StatusCompleted {
				marker = taskDoneStyle.Render("[x]")
			}
			line := fmt.Sprintf("%s %3d  %s", marker, t.ID, t.Title)
			if t.Description != "" {
				line += taskDimStyle.Render("  (" + t.Description + ")")
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksUser, "user", "u", "default", "user id owning the tasks")
	tasksCmd.Flags().StringVarP(&tasksStatus, "status", "s", "all", "status filter: all, open, completed")
	rootCmd.AddCommand(tasksCmd)
}
