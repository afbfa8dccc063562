// Package intervention decides when a mood reading should turn into a conversation.
package intervention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/emolyzer/internal/config"
	"github.com/balkashynov/emolyzer/internal/conversation"
	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/keylock"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/oracle"
)

// ErrInvalidSubmission rejects a malformed mood submission
var ErrInvalidSubmission = fmt.Errorf("invalid mood submission: %w", conversation.ErrInputValidation)

// Status is the result of a trigger
type Status string

const (
	StatusNotNeeded  Status = "not_needed"
	StatusInProgress Status = "in_progress"
	StatusOpened     Status = "opened"
)

// Outcome reports what a trigger did
type Outcome struct {
	Status    Status
	Triggered bool // false when the mood policy did not ask for an evaluation
	SessionID string
	Message   string // opening assistant message when a session was opened
	Decision  oracle.Decision

	// SessionStatus is the new session's status; completed when the oracle gave no reasons
	SessionStatus models.SessionStatus
}

// MoodSubmission is one self-reported reading
type MoodSubmission struct {
	EmployeeID string
	Scale      int
	At         time.Time // zero means now
}

// Policy decides which readings warrant an evaluation
type Policy struct {
	LowScoreThreshold int
	NegativeThreshold int
	TrailingWindow    int
}

// PolicyFromConfig copies the trigger thresholds out of the config
func PolicyFromConfig(cfg config.PolicyConfig) Policy {
	return Policy{
		LowScoreThreshold: cfg.LowScoreThreshold,
		NegativeThreshold: cfg.NegativeThreshold,
		TrailingWindow:    cfg.TrailingWindow,
	}
}

// ShouldTrigger reports whether latest alone is low enough, or whether the
// trailing readings (newest first, latest included) are uniformly negative.
func (p Policy) ShouldTrigger(latest int, trailing []int) bool {
	if latest <= p.LowScoreThreshold {
		return true
	}
	if p.TrailingWindow <= 0 || len(trailing) < p.TrailingWindow {
		return false
	}
	for _, scale := range trailing[:p.TrailingWindow] {
		if scale > p.NegativeThreshold {
			return false
		}
	}
	return true
}

// MoodStore records and reads mood readings
type MoodStore interface {
	RecordMood(ctx context.Context, entry *models.MoodEntry) error
	RecentMoods(ctx context.Context, employeeID string, since time.Time, limit int) ([]models.MoodEntry, error)
}

// HistorySource builds the oracle context for one employee
type HistorySource interface {
	Aggregate(ctx context.Context, employeeID string) (models.HistoryBundle, error)
}

// Conversations opens sessions and reports open ones
type Conversations interface {
	ActiveSession(ctx context.Context, employeeID string) (*models.Session, error)
	Open(ctx context.Context, employeeID string, reasons []oracle.Candidate) (conversation.OpenResult, error)
}

// Engine turns mood readings into intervention decisions
type Engine struct {
	moods         MoodStore
	history       HistorySource
	oracle        oracle.Oracle
	conversations Conversations
	policy        Policy
	locks         *keylock.Map
	logger        *zap.Logger
	now           func() time.Time
}

// NewEngine wires the decision engine. The oracle is wrapped with Guard.
func NewEngine(moods MoodStore, history HistorySource, o oracle.Oracle, conversations Conversations, policy Policy, oracleTimeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		moods:         moods,
		history:       history,
		oracle:        oracle.Guard(o, oracleTimeout, logger),
		conversations: conversations,
		policy:        policy,
		locks:         keylock.New(),
		logger:        logger.With(zap.String("component", "intervention")),
		now:           time.Now,
	}
}

// SetClock overrides the time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// ShouldTrigger applies the engine's policy
func (e *Engine) ShouldTrigger(latest int, trailing []int) bool {
	return e.policy.ShouldTrigger(latest, trailing)
}

// SubmitMood records a reading and, when the policy asks for it, evaluates
// whether to open a session. Oracle failures never surface here.
func (e *Engine) SubmitMood(ctx context.Context, sub MoodSubmission) (Outcome, error) {
	employeeID := strings.TrimSpace(sub.EmployeeID)
	if employeeID == "" {
		return Outcome{}, fmt.Errorf("%w: employee id is required", ErrInvalidSubmission)
	}
	label := models.MoodLabel(sub.Scale)
	if label == "" {
		return Outcome{}, fmt.Errorf("%w: mood %d outside 1-5", ErrInvalidSubmission, sub.Scale)
	}

	at := sub.At
	if at.IsZero() {
		at = e.now()
	}
	entry := &models.MoodEntry{EmployeeID: employeeID, Mood: label, Scale: sub.Scale, CreatedAt: at.UTC()}
	if err := e.moods.RecordMood(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("failed to record mood: %w", err)
	}

	var trailing []int
	if e.policy.TrailingWindow > 0 {
		recent, err := e.moods.RecentMoods(ctx, employeeID, time.Time{}, e.policy.TrailingWindow)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to read recent moods: %w", err)
		}
		for _, m := range recent {
			trailing = append(trailing, m.Scale)
		}
	}

	log := e.logger.With(zap.String("employee_id", employeeID))
	if !e.policy.ShouldTrigger(sub.Scale, trailing) {
		log.Debug("Mood recorded, no evaluation", zap.Int("scale", sub.Scale), zap.Ints("trailing", trailing))
		return Outcome{Status: StatusNotNeeded}, nil
	}

	log.Info("Mood policy triggered evaluation", zap.Int("scale", sub.Scale), zap.Ints("trailing", trailing))
	out, err := e.evaluateAndOpen(ctx, employeeID)
	out.Triggered = true
	return out, err
}

// Check runs an evaluation on demand, skipping the mood policy
func (e *Engine) Check(ctx context.Context, employeeID string) (Outcome, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Outcome{}, fmt.Errorf("%w: employee id is required", ErrInvalidSubmission)
	}
	out, err := e.evaluateAndOpen(ctx, employeeID)
	out.Triggered = true
	return out, err
}

// Evaluate asks the oracle for a decision. Any failure yields a no-intervention
// decision with the cause recorded on it.
func (e *Engine) Evaluate(ctx context.Context, bundle models.HistoryBundle) oracle.Decision {
	decision, err := e.oracle.DecideIntervention(ctx, bundle)
	if err != nil {
		e.logger.Warn("Intervention decision failed, not intervening",
			zap.String("employee_id", bundle.EmployeeID),
			zap.Error(err))
		return oracle.NoIntervention(err)
	}
	return decision
}

func (e *Engine) evaluateAndOpen(ctx context.Context, employeeID string) (Outcome, error) {
	unlock := e.locks.Lock(employeeID)
	defer unlock()

	log := e.logger.With(zap.String("employee_id", employeeID))

	if out, ok, err := e.inProgress(ctx, employeeID); err != nil || ok {
		return out, err
	}

	bundle, err := e.history.Aggregate(ctx, employeeID)
	if err != nil {
		return Outcome{}, err
	}

	decision := e.Evaluate(ctx, bundle)
	if !decision.Needed {
		log.Info("No intervention needed",
			zap.Float64("confidence", decision.Confidence),
			zap.String("failure", decision.Failure))
		return Outcome{Status: StatusNotNeeded, Decision: decision}, nil
	}

	opened, err := e.conversations.Open(ctx, employeeID, decision.Reasons)
	if errors.Is(err, db.ErrActiveSessionExists) {
		// Another process opened one between the check and the insert
		out, _, err := e.inProgress(ctx, employeeID)
		out.Decision = decision
		return out, err
	}
	if err != nil {
		return Outcome{}, err
	}

	log.Info("Intervention opened",
		zap.String("session_id", opened.SessionID),
		zap.Int("reasons", len(decision.Reasons)),
		zap.Float64("confidence", decision.Confidence))
	return Outcome{
		Status:        StatusOpened,
		SessionID:     opened.SessionID,
		Message:       opened.Message,
		Decision:      decision,
		SessionStatus: opened.Status,
	}, nil
}

func (e *Engine) inProgress(ctx context.Context, employeeID string) (Outcome, bool, error) {
	active, err := e.conversations.ActiveSession(ctx, employeeID)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("failed to check for an active session: %w", err)
	}
	if active == nil {
		return Outcome{}, false, nil
	}
	e.logger.Debug("Session already in progress",
		zap.String("employee_id", employeeID),
		zap.String("session_id", active.ID))
	return Outcome{Status: StatusInProgress, SessionID: active.ID, SessionStatus: active.Status}, true, nil
}
