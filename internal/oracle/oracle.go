// Package oracle is the typed boundary to the external reasoning service.
// Everything that parses or validates model output lives here so callers only
// ever see checked values or an error.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/balkashynov/emolyzer/internal/models"
)

var (
	// ErrUnavailable covers transport failures and timeouts.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrMalformedResponse covers payloads that fail decoding or validation.
	ErrMalformedResponse = errors.New("oracle returned a malformed response")
)

// Fixed texts used when the oracle cannot be relied on.
const (
	FallbackResponse   = "I'm here to listen and support you. Could you tell me more about how you're feeling today?"
	DefaultSummaryText = "An automatic summary could not be produced for this conversation. Please review the transcript manually."
	UnknownReason      = "unknown"
)

// Oracle converts employee history and conversation context into structured judgments.
type Oracle interface {
	DecideIntervention(ctx context.Context, bundle models.HistoryBundle) (Decision, error)
	JudgeFollowup(ctx context.Context, req FollowupRequest) (Followup, error)
	Summarize(ctx context.Context, req SummaryRequest) (Summary, error)
}

// Candidate is one ranked distress cause with the question that opens it.
type Candidate struct {
	Reason        string `json:"reason"`
	ProbeQuestion string `json:"question"`
}

// Decision is the answer to "should we open a conversation".
type Decision struct {
	Needed     bool        `json:"intervention_needed"`
	Confidence float64     `json:"confidence"`
	Reasons    []Candidate `json:"reasons"`

	// Failure is set when the decision is a fail-safe default rather than an oracle answer.
	Failure string `json:"-"`
}

// FollowupRequest carries the active reason and the trailing transcript.
type FollowupRequest struct {
	Reason        string
	ProbeQuestion string
	Transcript    []models.Message
}

// Followup is the per-turn continue/stop judgment.
type Followup struct {
	ContinueFollowup bool   `json:"continue_followup"`
	ResponseText     string `json:"response_text"`
	DecisionReason   string `json:"decision_reason"`
}

// SummaryRequest carries the full transcript and every reason that was considered.
type SummaryRequest struct {
	EmployeeID       string
	Transcript       []models.Message
	CandidateReasons []string
}

// Summary is the end-of-session assessment.
type Summary struct {
	Title              string `json:"title"`
	Summary            string `json:"summary"`
	IdentifiedReason   string `json:"identified_reason"`
	SeverityScore      int    `json:"severity_score"`
	EscalationRequired bool   `json:"escalation_required"`
}

// Validate checks the decision shape.
func (d Decision) Validate() error {
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return malformed("confidence %v outside [0,1]", d.Confidence)
	}
	for i, c := range d.Reasons {
		if strings.TrimSpace(c.Reason) == "" {
			return malformed("reason %d is empty", i+1)
		}
		if strings.TrimSpace(c.ProbeQuestion) == "" {
			return malformed("reason %d has no probe question", i+1)
		}
	}
	return nil
}

// Validate checks the follow-up shape.
func (f Followup) Validate() error {
	if f.ContinueFollowup && strings.TrimSpace(f.ResponseText) == "" {
		return malformed("continue_followup without response_text")
	}
	return nil
}

// Validate checks the summary shape.
func (s Summary) Validate() error {
	if s.SeverityScore < 1 || s.SeverityScore > 10 {
		return malformed("severity_score %d outside [1,10]", s.SeverityScore)
	}
	if strings.TrimSpace(s.Summary) == "" {
		return malformed("summary is empty")
	}
	return nil
}

// NoIntervention is the fail-safe decision.
func NoIntervention(cause error) Decision {
	d := Decision{Needed: false}
	if cause != nil {
		d.Failure = cause.Error()
	}
	return d
}

// FallbackFollowup keeps the conversation going with a fixed supportive prompt.
// The follow-up cap still bounds how often it can repeat.
func FallbackFollowup() Followup {
	return Followup{
		ContinueFollowup: true,
		ResponseText:     FallbackResponse,
		DecisionReason:   "fallback",
	}
}

// DefaultSummary is the conservative assessment used when summarization fails.
func DefaultSummary() Summary {
	return Summary{
		Summary:            DefaultSummaryText,
		IdentifiedReason:   UnknownReason,
		SeverityScore:      1,
		EscalationRequired: false,
	}
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
