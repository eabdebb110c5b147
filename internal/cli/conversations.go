package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var conversationsUser string

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List stored conversations for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ConvStore == nil {
			return fmt.Errorf("conversation store not initialized")
		}

		convs, err := ConvStore.List(conversationsUser)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}
		if len(convs) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		for _, c := range convs {
			fmt.Printf("%s  %3d messages  updated %s\n",
				c.ID, len(c.Messages), c.Updated.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	conversationsCmd.Flags().StringVarP(&conversationsUser, "user", "u", "default", "user id owning the conversations")
	rootCmd.AddCommand(conversationsCmd)
}
