package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/parser"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record awards, leave and performance reviews",
	Long: `Add the history records that are weighed when deciding whether an
employee might need a conversation. Dates use dd/mm/yyyy.`,
}

var recordAwardCmd = &cobra.Command{
	Use:     "award <employee-id> <award-type>",
	Short:   "Record an award",
	Example: `  emolyzer record award EMP001 "Star Performer" --date 01/05/2026 --points 200`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID, err := parser.NormalizeEmployeeID(args[0])
		if err != nil {
			return err
		}
		date, err := dateFlag(cmd, "date")
		if err != nil {
			return err
		}
		points, _ := cmd.Flags().GetInt("points")
		if points < 0 {
			return fmt.Errorf("points cannot be negative")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		award := &models.Award{
			EmployeeID:   employeeID,
			AwardType:    strings.TrimSpace(args[1]),
			AwardDate:    date,
			RewardPoints: points,
		}
		if err := store.RecordAward(cmd.Context(), award); err != nil {
			return err
		}
		fmt.Printf("🏆 Recorded award #%d for %s: %s (%s)\n", award.ID, employeeID, award.AwardType, parser.FormatDate(date))
		return nil
	},
}

var recordLeaveCmd = &cobra.Command{
	Use:     "leave <employee-id> <leave-type>",
	Short:   "Record a block of leave",
	Example: `  emolyzer record leave EMP001 sick --from 10/05/2026 --to 12/05/2026`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID, err := parser.NormalizeEmployeeID(args[0])
		if err != nil {
			return err
		}
		from, err := dateFlag(cmd, "from")
		if err != nil {
			return err
		}
		to := from
		if raw, _ := cmd.Flags().GetString("to"); raw != "" {
			if to, err = parser.ParseDate(raw); err != nil {
				return err
			}
		}
		if to.Before(from) {
			return fmt.Errorf("leave cannot end before it starts")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		leave := &models.LeaveRecord{
			EmployeeID: employeeID,
			LeaveType:  strings.ToLower(strings.TrimSpace(args[1])),
			LeaveDays:  int(to.Sub(from).Hours()/24) + 1,
			StartDate:  from,
			EndDate:    to,
		}
		if err := store.RecordLeave(cmd.Context(), leave); err != nil {
			return err
		}
		fmt.Printf("🌴 Recorded %d day(s) of %s leave for %s starting %s\n",
			leave.LeaveDays, leave.LeaveType, employeeID, parser.FormatDate(from))
		return nil
	},
}

var recordReviewCmd = &cobra.Command{
	Use:     "review <employee-id> <period>",
	Short:   "Record a performance review",
	Example: `  emolyzer record review EMP001 2026-H1 --rating 3.5 --feedback "Solid delivery" --promotion`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		employeeID, err := parser.NormalizeEmployeeID(args[0])
		if err != nil {
			return err
		}
		rating, _ := cmd.Flags().GetFloat64("rating")
		if rating < 0 || rating > 5 {
			return fmt.Errorf("rating must be between 0 and 5")
		}
		feedback, _ := cmd.Flags().GetString("feedback")
		promotion, _ := cmd.Flags().GetBool("promotion")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		review := &models.PerformanceReview{
			EmployeeID:             employeeID,
			ReviewPeriod:           strings.ToUpper(strings.TrimSpace(args[1])),
			Rating:                 rating,
			ManagerFeedback:        strings.TrimSpace(feedback),
			PromotionConsideration: promotion,
		}
		if err := store.RecordReview(cmd.Context(), review); err != nil {
			return err
		}
		fmt.Printf("📋 Recorded %s review for %s (rating %.1f)\n", review.ReviewPeriod, employeeID, rating)
		return nil
	},
}

// dateFlag reads a dd/mm/yyyy flag, defaulting to today
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parser.ParseDate(raw)
}

func init() {
	recordAwardCmd.Flags().String("date", "", "Award date (dd/mm/yyyy), defaults to today")
	recordAwardCmd.Flags().Int("points", 0, "Reward points")

	recordLeaveCmd.Flags().String("from", "", "First day of leave (dd/mm/yyyy), defaults to today")
	recordLeaveCmd.Flags().String("to", "", "Last day of leave (dd/mm/yyyy), defaults to --from")

	recordReviewCmd.Flags().Float64("rating", 0, "Rating from 0 to 5")
	recordReviewCmd.Flags().String("feedback", "", "Manager feedback")
	recordReviewCmd.Flags().Bool("promotion", false, "Under promotion consideration")

	recordCmd.AddCommand(recordAwardCmd)
	recordCmd.AddCommand(recordLeaveCmd)
	recordCmd.AddCommand(recordReviewCmd)
}
