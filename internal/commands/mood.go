package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/emolyzer/internal/intervention"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/parser"
)

var moodCmd = &cobra.Command{
	Use:   "mood <employee-id> <mood>",
	Short: "Submit a mood reading",
	Long: `Record how an employee feels right now. The mood is one of
frustrated, sad, okay, happy, excited or a number from 1 to 5.

A very low reading, or a run of negative ones, triggers an evaluation that may
open a supportive conversation.`,
	Example: `  emolyzer mood EMP001 sad
  emolyzer mood EMP001 2 --at 03/06/2026`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID, err := parser.NormalizeEmployeeID(args[0])
		if err != nil {
			return err
		}
		scale, err := parser.ParseMood(args[1])
		if err != nil {
			return err
		}

		var at time.Time
		if raw, _ := cmd.Flags().GetString("at"); raw != "" {
			if at, err = parser.ParseDate(raw); err != nil {
				return err
			}
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		out, err := a.engine.SubmitMood(cmd.Context(), intervention.MoodSubmission{
			EmployeeID: employeeID,
			Scale:      scale,
			At:         at,
		})
		if err != nil {
			return err
		}

		fmt.Printf("📝 Recorded mood %s (%d/5) for %s\n", models.MoodLabel(scale), scale, employeeID)
		printOutcome(out)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <employee-id>",
	Short: "Run a vibe check now",
	Long: `Evaluate an employee's recent history immediately, without waiting for a
low mood reading, and open a conversation if one would help.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID, err := parser.NormalizeEmployeeID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		out, err := a.engine.Check(cmd.Context(), employeeID)
		if err != nil {
			return err
		}
		printOutcome(out)
		return nil
	},
}

func printOutcome(out intervention.Outcome) {
	switch out.Status {
	case intervention.StatusOpened:
		if out.SessionStatus.IsTerminal() {
			fmt.Printf("✅ Checked in, nothing to talk through (session %s)\n", out.SessionID)
			fmt.Printf("   %s\n", out.Message)
			return
		}
		fmt.Printf("💬 Conversation opened: %s\n\n", out.SessionID)
		fmt.Printf("   %s\n\n", out.Message)
		fmt.Printf("Reply with: emolyzer say %s \"...\"  or  emolyzer chat %s\n", out.SessionID, out.SessionID)
		if len(out.Decision.Reasons) > 0 {
			reasons := make([]string, 0, len(out.Decision.Reasons))
			for _, r := range out.Decision.Reasons {
				reasons = append(reasons, r.Reason)
			}
			logger.Sugar().Debugf("Candidate reasons: %s", strings.Join(reasons, ", "))
		}
	case intervention.StatusInProgress:
		if out.SessionID != "" {
			fmt.Printf("💬 A conversation is already in progress: %s\n", out.SessionID)
		} else {
			fmt.Println("💬 A conversation is already in progress")
		}
	default:
		if out.Triggered {
			fmt.Println("🙂 No conversation needed right now")
		}
	}
}

func init() {
	moodCmd.Flags().String("at", "", "Reading date (dd/mm/yyyy), defaults to now")
}
