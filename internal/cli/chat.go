package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatUser           string
	chatConversationID string
	chatInteractive    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a chat message or start an interactive session",
	Long: `Send one free-text message through the command pipeline, or start an
interactive chat session with -i.

Examples:
  tdc chat "add buy milk"
  tdc chat "complete the milk task and delete task 3"
  tdc chat -i`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Pipeline == nil {
			return fmt.Errorf("pipeline not initialized")
		}

		if chatInteractive {
			return runChatUI(chatUser)
		}

		message := strings.TrimSpace(strings.Join(args, " "))
		if message == "" {
			return fmt.Errorf("message is required (or use -i for interactive mode)")
		}

		turn, err := Pipeline.ResolveAndExecute(context.Background(), chatUser, chatConversationID, message)
		if err != nil {
			return fmt.Errorf("handling turn: %w", err)
		}

		fmt.Println(turn.Reply)
		if chatConversationID == "" {
			fmt.Printf("\nconversation: %s\n", turn.ConversationID)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "default", "user id owning the tasks")
	chatCmd.Flags().StringVarP(&chatConversationID, "conversation", "c", "", "conversation id to continue")
	chatCmd.Flags().BoolVarP(&chatInteractive, "interactive", "i", false, "start an interactive chat session")
	rootCmd.AddCommand(chatCmd)
}
