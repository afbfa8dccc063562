package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/emolyzer/internal/parser"
	"github.com/balkashynov/emolyzer/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Continue a conversation interactively",
	Long: `Open the chat window for a conversation. Pass a session id, or use
--employee to resume that employee's open conversation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var sessionID string
		if len(args) == 1 {
			sessionID = args[0]
		} else {
			raw, _ := cmd.Flags().GetString("employee")
			if raw == "" {
				return fmt.Errorf("pass a session id or --employee")
			}
			employeeID, err := parser.NormalizeEmployeeID(raw)
			if err != nil {
				return err
			}
			active, err := a.conversations.ActiveSession(ctx, employeeID)
			if err != nil {
				return err
			}
			if active == nil {
				fmt.Printf("No open conversation for %s\n", employeeID)
				return nil
			}
			sessionID = active.ID
		}

		sess, err := a.conversations.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		history, err := a.conversations.Transcript(ctx, sessionID)
		if err != nil {
			return err
		}

		return tui.RunChat(ctx, a.conversations, sess, history)
	},
}

func init() {
	chatCmd.Flags().StringP("employee", "e", "", "Resume the open conversation of this employee")
}
