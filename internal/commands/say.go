package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/emolyzer/internal/conversation"
	"github.com/balkashynov/emolyzer/internal/models"
)

var sayCmd = &cobra.Command{
	Use:   "say <session-id> [text...]",
	Short: "Send one reply in a conversation",
	Long: `Send a single reply and print the companion's answer. When every topic has
been covered, calling say without text closes the conversation.`,
	Example: `  emolyzer say 3f0c... "Honestly the deadlines have been brutal"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := strings.TrimSpace(args[0])
		text := strings.Join(args[1:], " ")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.conversations.HandleTurn(cmd.Context(), sessionID, text)
		switch {
		case errors.Is(err, conversation.ErrInputValidation):
			return fmt.Errorf("please include your reply: emolyzer say %s \"...\"", sessionID)
		case err != nil:
			return err
		}

		fmt.Printf("\n   %s\n\n", res.AssistantText)
		if res.Unpersisted {
			fmt.Println("⚠️  Part of this turn could not be saved")
		}
		if res.Final != nil {
			printFinal(*res.Final)
		}
		return nil
	},
}

func printFinal(f conversation.FinalizeResult) {
	icon := "✅"
	if f.Status == models.StatusEscalated {
		icon = "⚠️ "
	}
	fmt.Printf("%s Session %s is %s\n", icon, f.SessionID, f.Status)
	if f.Title != "" {
		fmt.Printf("   Title:    %s\n", f.Title)
	}
	fmt.Printf("   Severity: %d/10\n", f.SeverityScore)
	if f.Degraded {
		fmt.Println("   Summary could not be generated; review the transcript manually")
	}
	if f.Unpersisted {
		fmt.Println("   ⚠️  Final state could not be saved; run: emolyzer sessions finalize " + f.SessionID)
	}
}
