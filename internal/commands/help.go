package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for emolyzer",
	Long:  `Display detailed help for all emolyzer commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
███████╗███╗   ███╗ ██████╗ ██╗  ██╗   ██╗███████╗███████╗██████╗
██╔════╝████╗ ████║██╔═══██╗██║  ╚██╗ ██╔╝╚══███╔╝██╔════╝██╔══██╗
█████╗  ██╔████╔██║██║   ██║██║   ╚████╔╝   ███╔╝ █████╗  ██████╔╝
██╔══╝  ██║╚██╔╝██║██║   ██║██║    ╚██╔╝   ███╔╝  ██╔══╝  ██╔══██╗
███████╗██║ ╚═╝ ██║╚██████╔╝███████╗██║   ███████╗███████╗██║  ██║
╚══════╝╚═╝     ╚═╝ ╚═════╝ ╚══════╝╚═╝   ╚══════╝╚══════╝╚═╝  ╚═╝

emolyzer - employee wellbeing check-ins

COMMANDS:

  mood <employee-id> <mood>   Record a mood reading and decide on a check-in
    --at                      Reading date (dd/mm/yyyy)

    Moods: 1-5, frustrated, sad, okay, happy, excited (or an emoji)

    Example:
      emolyzer mood EMP001 sad

  check <employee-id>         Evaluate history without a new reading

  chat [session-id]           Hold the conversation in an interactive UI
    -e, --employee            Resume this employee's open conversation

    Quick actions:
      enter         Send reply
      ↑/↓, pgup     Scroll transcript
      esc/ctrl+c    Leave (the conversation stays open)

  say <session-id> [text]     Send one reply without the UI
                              (no text finishes a conversation with no
                              questions left)

  sessions ls                 List conversations
    -e, --employee            Only this employee
    --escalated               Only escalated conversations
    --since                   dd/mm/yyyy, 7 days, 2 weeks
    -n, --limit               Maximum rows (default 50)
    --json                    JSON output

  sessions show <id>          Show a conversation with its transcript
    --json                    JSON output

  sessions finalize <id>      Close a conversation and summarize it

  record award <emp> <type>   Record an award (--date, --points)
  record leave <emp> <type>   Record leave (--from, --to)
  record review <emp> <per>   Record a review (--rating, --feedback, --promotion)

  config show                 Print the effective configuration
  config init                 Write the configuration file (--force)

  version                     Print version information
  help                        Show this help

GLOBAL FLAGS:
  -v, --verbose               Enable debug logging
  --config                    Config file (default ~/.emolyzer/config.yaml)

ENVIRONMENT:
  GEMINI_API_KEY              Enables the conversation model; without it
                              every decision takes the safe fallback

`)
}
