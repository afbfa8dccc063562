package oracle

import (
	"context"
	"fmt"

	"github.com/balkashynov/emolyzer/internal/models"
)

// unavailable stands in when no oracle can be configured. Every call fails
// with ErrUnavailable so callers take their fallback paths.
type unavailable struct {
	cause error
}

// Unavailable returns an Oracle that always fails with cause
func Unavailable(cause error) Oracle {
	return unavailable{cause: cause}
}

func (u unavailable) err() error {
	return fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}

func (u unavailable) DecideIntervention(context.Context, models.HistoryBundle) (Decision, error) {
	return Decision{}, u.err()
}

func (u unavailable) JudgeFollowup(context.Context, FollowupRequest) (Followup, error) {
	return Followup{}, u.err()
}

func (u unavailable) Summarize(context.Context, SummaryRequest) (Summary, error) {
	return Summary{}, u.err()
}
