package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/parser"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"s"},
	Short:   "Review conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List conversations, newest first",
	Example: `  emolyzer sessions ls --escalated --since "2 weeks"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := db.SessionFilter{}

		if raw, _ := cmd.Flags().GetString("employee"); raw != "" {
			employeeID, err := parser.NormalizeEmployeeID(raw)
			if err != nil {
				return err
			}
			filter.EmployeeID = employeeID
		}
		filter.EscalatedOnly, _ = cmd.Flags().GetBool("escalated")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		if raw, _ := cmd.Flags().GetString("since"); raw != "" {
			since, err := parser.ParseLookback(raw, time.Now().UTC())
			if err != nil {
				return err
			}
			filter.Since = since
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.ListSessions(cmd.Context(), filter)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(sessions)
		}
		if len(sessions) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}
		renderSessionTable(sessions)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a conversation with its reasons, summary and transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := store.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("session %s not found", args[0])
		}
		transcript, err := store.Transcript(cmd.Context(), sess.ID, 0)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return writeJSON(struct {
				Session    *models.Session  `json:"session"`
				Transcript []models.Message `json:"transcript"`
			}{sess, transcript})
		}
		renderSessionDetail(sess, transcript)
		return nil
	},
}

var sessionsFinalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Summarize and close a conversation",
	Long: `Close a conversation now. Closed conversations are left as they are, so this
is safe to repeat after a failed save.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.conversations.Finalize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printFinal(res)
		return nil
	},
}

func renderSessionTable(sessions []models.Session) {
	now := time.Now()
	fmt.Printf("%-36s %-10s %-10s %-8s %-12s %s\n", "ID", "EMPLOYEE", "STATUS", "SEVERITY", "STARTED", "TITLE")
	fmt.Println(strings.Repeat("-", 100))

	for _, s := range sessions {
		severity := "-"
		if s.SeverityScore != nil {
			severity = fmt.Sprintf("%d/10", *s.SeverityScore)
		}
		title := ""
		if s.Title != nil {
			title = *s.Title
		}
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		status := string(s.Status)
		if s.IsEscalated {
			status = "⚠️ " + status
		}

		fmt.Printf("%-36s %-10s %-10s %-8s %-12s %s\n",
			s.ID,
			s.EmployeeID,
			status,
			severity,
			parser.FormatAge(s.StartedAt, now),
			title)
	}
}

func renderSessionDetail(s *models.Session, transcript []models.Message) {
	title := "(untitled)"
	if s.Title != nil {
		title = *s.Title
	}
	fmt.Printf("💬 %s\n", title)
	fmt.Printf("   ID:        %s\n", s.ID)
	fmt.Printf("   Employee:  %s\n", s.EmployeeID)
	fmt.Printf("   Status:    %s\n", s.Status)
	fmt.Printf("   Started:   %s\n", s.StartedAt.Local().Format("02/01/2006 15:04"))
	if s.EndedAt != nil {
		fmt.Printf("   Ended:     %s\n", s.EndedAt.Local().Format("02/01/2006 15:04"))
	}
	if s.SeverityScore != nil {
		fmt.Printf("   Severity:  %d/10\n", *s.SeverityScore)
	}
	if s.IsEscalated {
		fmt.Println("   ⚠️  Escalated for human review")
	}
	if s.IdentifiedReason != nil {
		fmt.Printf("   Reason:    %s\n", *s.IdentifiedReason)
	}
	if s.Summary != nil {
		fmt.Printf("\nSummary:\n   %s\n", *s.Summary)
	}

	if len(s.Slots) > 0 {
		fmt.Println("\nTopics:")
		for _, slot := range s.Slots {
			marker := "○"
			switch {
			case slot.Active:
				marker = "▶"
			case slot.Asked:
				marker = "✓"
			}
			fmt.Printf("   %s %d. %s\n      %s\n", marker, slot.Rank, slot.Reason, slot.ProbeQuestion)
		}
	}

	fmt.Println("\nTranscript:")
	if len(transcript) == 0 {
		fmt.Println("   (empty)")
	}
	for _, msg := range transcript {
		fmt.Printf("   [%s] %-9s %s\n", msg.CreatedAt.Local().Format("15:04"), msg.Sender+":", msg.Text)
	}
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	sessionsListCmd.Flags().StringP("employee", "e", "", "Only this employee")
	sessionsListCmd.Flags().Bool("escalated", false, "Only escalated conversations")
	sessionsListCmd.Flags().String("since", "", "Started within: dd/mm/yyyy, X days, X weeks")
	sessionsListCmd.Flags().IntP("limit", "n", 50, "Maximum rows")
	sessionsListCmd.Flags().Bool("json", false, "JSON output")
	sessionsShowCmd.Flags().Bool("json", false, "JSON output")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsFinalizeCmd)
}
