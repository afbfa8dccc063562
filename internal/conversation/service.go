// Package conversation runs the guided dialogue: opening a session, processing
// each user turn against the active reason slot and finalizing the outcome.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/emolyzer/internal/keylock"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/oracle"
	"github.com/balkashynov/emolyzer/internal/session"
)

var (
	// ErrInputValidation rejects a request before any state is touched
	ErrInputValidation = errors.New("invalid input")

	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a turn targets a terminal session
	ErrSessionClosed = errors.New("session is closed")
)

// ClosingMessage is sent once every reason has been explored
const ClosingMessage = "Thank you for opening up and sharing all of this with me. I've noted what we talked about so the right people can support you. Take care of yourself."

// Store is the persistence the conversation needs
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ActiveSession(ctx context.Context, employeeID string) (*models.Session, error)
	SaveSessionState(ctx context.Context, s *models.Session) error
	AppendMessage(ctx context.Context, msg *models.Message) error
	Transcript(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

// Options tune the turn policy
type Options struct {
	MaxFollowupsPerReason int
	TranscriptWindow      int
	OracleTimeout         time.Duration
	Now                   func() time.Time
}

// DefaultOptions matches the shipped policy defaults
func DefaultOptions() Options {
	return Options{
		MaxFollowupsPerReason: 3,
		TranscriptWindow:      20,
		OracleTimeout:         oracle.DefaultTimeout,
		Now:                   time.Now,
	}
}

// OpenResult describes a newly created session
type OpenResult struct {
	SessionID   string
	Message     string
	Status      models.SessionStatus
	Unpersisted bool
}

// TurnResult is what one turn hands back to the employee
type TurnResult struct {
	SessionID     string
	AssistantText string
	Status        models.SessionStatus

	// Forced is set when the follow-up cap advanced the slot without asking the oracle
	Forced bool

	// Final is set when this turn finalized the session
	Final *FinalizeResult

	// Unpersisted means at least one write failed twice and needs reconciliation
	Unpersisted bool
}

// FinalizeResult is the outcome written onto a closed session
type FinalizeResult struct {
	SessionID          string
	Status             models.SessionStatus
	Title              string
	Summary            string
	IdentifiedReason   string
	SeverityScore      int
	EscalationRequired bool

	// Degraded is set when the oracle could not summarize and defaults were used
	Degraded    bool
	Unpersisted bool
}

// Service is safe for concurrent use. Calls for the same session are serialized.
type Service struct {
	store  Store
	oracle oracle.Oracle
	opts   Options
	locks  *keylock.Map
	logger *zap.Logger
}

// NewService wires a conversation service. The oracle is wrapped with Guard.
func NewService(store Store, o oracle.Oracle, opts Options, logger *zap.Logger) *Service {
	defaults := DefaultOptions()
	if opts.MaxFollowupsPerReason <= 0 {
		opts.MaxFollowupsPerReason = defaults.MaxFollowupsPerReason
	}
	if opts.TranscriptWindow <= 0 {
		opts.TranscriptWindow = defaults.TranscriptWindow
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = defaults.OracleTimeout
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		oracle: oracle.Guard(o, opts.OracleTimeout, logger),
		opts:   opts,
		locks:  keylock.New(),
		logger: logger.With(zap.String("component", "conversation")),
	}
}

// Open creates a session for the employee with the given ranked reasons and
// records the opening assistant message. An empty reason list yields a session
// that is already completed.
func (s *Service) Open(ctx context.Context, employeeID string, reasons []oracle.Candidate) (OpenResult, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return OpenResult{}, fmt.Errorf("%w: employee id is required", ErrInputValidation)
	}

	m, opening := session.Open(employeeID, reasons, s.opts.Now())

	// Held across the insert so no turn sees the session before its opening message
	unlock := s.locks.Lock(m.ID())
	defer unlock()

	if err := s.store.CreateSession(ctx, m.Session()); err != nil {
		return OpenResult{}, fmt.Errorf("failed to open session: %w", err)
	}

	ok := s.appendMessage(ctx, m.ID(), models.SenderAssistant, opening)

	s.logger.Info("Session opened",
		zap.String("session_id", m.ID()),
		zap.String("employee_id", employeeID),
		zap.Int("reasons", len(reasons)),
		zap.String("status", string(m.Status())))

	return OpenResult{
		SessionID:   m.ID(),
		Message:     opening,
		Status:      m.Status(),
		Unpersisted: !ok,
	}, nil
}

// HandleTurn processes one user utterance. userText may be empty only when no
// reason slot remains, which produces the closing message and finalizes.
func (s *Service) HandleTurn(ctx context.Context, sessionID, userText string) (TurnResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	m, err := s.load(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if m.Status().IsTerminal() {
		return TurnResult{}, fmt.Errorf("session %s is %s: %w", sessionID, m.Status(), ErrSessionClosed)
	}

	text := strings.TrimSpace(userText)
	slot, hasSlot := m.Active()
	if hasSlot && text == "" {
		return TurnResult{}, fmt.Errorf("%w: a reply is required while a conversation is in progress", ErrInputValidation)
	}

	log := s.logger.With(zap.String("session_id", sessionID), zap.String("employee_id", m.Session().EmployeeID))
	result := TurnResult{SessionID: sessionID}

	// Read before writing so a failed read leaves nothing half done
	var transcript []models.Message
	if hasSlot && !m.FollowupsExhausted(s.opts.MaxFollowupsPerReason) {
		transcript, err = s.store.Transcript(ctx, sessionID, s.opts.TranscriptWindow)
		if err != nil {
			return TurnResult{}, fmt.Errorf("failed to load transcript: %w", err)
		}
	}

	if text != "" {
		if !s.appendMessage(ctx, sessionID, models.SenderUser, text) {
			result.Unpersisted = true
		}
		transcript = trailing(append(transcript, models.Message{
			SessionID: sessionID,
			Sender:    models.SenderUser,
			Text:      text,
			CreatedAt: s.opts.Now().UTC(),
		}), s.opts.TranscriptWindow)
	}

	finalize := false
	switch {
	case !hasSlot:
		result.AssistantText = ClosingMessage
		finalize = true

	case m.FollowupsExhausted(s.opts.MaxFollowupsPerReason):
		log.Warn("Follow-up cap reached, advancing",
			zap.Int("slot_rank", slot.Rank),
			zap.String("reason", slot.Reason),
			zap.Int("followups", slot.Followups))
		result.Forced = true
		result.AssistantText, finalize, err = s.advance(m)

	default:
		judgment, jerr := s.oracle.JudgeFollowup(ctx, oracle.FollowupRequest{
			Reason:        slot.Reason,
			ProbeQuestion: slot.ProbeQuestion,
			Transcript:    transcript,
		})
		if jerr != nil {
			log.Warn("Follow-up judgment failed, using fallback", zap.Int("slot_rank", slot.Rank), zap.Error(jerr))
			judgment = oracle.FallbackFollowup()
		}

		if judgment.ContinueFollowup {
			err = m.NoteFollowup()
			result.AssistantText = judgment.ResponseText
		} else {
			log.Debug("Reason explored",
				zap.Int("slot_rank", slot.Rank),
				zap.String("reason", slot.Reason),
				zap.String("decision_reason", judgment.DecisionReason))
			result.AssistantText, finalize, err = s.advance(m)
		}
	}
	if err != nil {
		log.Error("Turn violated session invariants", zap.Error(err))
		return TurnResult{}, err
	}

	if !s.persist(ctx, log, "save session state", func(ctx context.Context) error {
		return s.store.SaveSessionState(ctx, m.Session())
	}) {
		result.Unpersisted = true
	}
	if !s.appendMessage(ctx, sessionID, models.SenderAssistant, result.AssistantText) {
		result.Unpersisted = true
	}

	result.Status = m.Status()
	if finalize {
		final, err := s.finalize(ctx, m)
		if err != nil {
			return TurnResult{}, err
		}
		result.Final = &final
		result.Status = final.Status
		result.Unpersisted = result.Unpersisted || final.Unpersisted
	}
	return result, nil
}

// advance moves to the next slot and returns the text to send.
// finalize is true when no slot remains.
func (s *Service) advance(m *session.Machine) (text string, finalize bool, err error) {
	question, more, err := m.Advance()
	if err != nil {
		return "", false, err
	}
	if !more {
		return ClosingMessage, true, nil
	}
	return question, false, nil
}

// Finalize summarizes and closes a session. On a session that is already
// closed it returns the stored outcome without consulting the oracle.
func (s *Service) Finalize(ctx context.Context, sessionID string) (FinalizeResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	m, err := s.load(ctx, sessionID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if m.Status().IsTerminal() {
		return outcomeOf(m.Session()), nil
	}
	return s.finalize(ctx, m)
}

// finalize must be called with the session lock held
func (s *Service) finalize(ctx context.Context, m *session.Machine) (FinalizeResult, error) {
	log := s.logger.With(zap.String("session_id", m.ID()), zap.String("employee_id", m.Session().EmployeeID))

	degraded := false
	var summary oracle.Summary

	transcript, err := s.store.Transcript(ctx, m.ID(), 0)
	if err != nil {
		log.Warn("Transcript unavailable for summary, using defaults", zap.Error(err))
		summary, degraded = oracle.DefaultSummary(), true
	} else {
		summary, err = s.oracle.Summarize(ctx, oracle.SummaryRequest{
			EmployeeID:       m.Session().EmployeeID,
			Transcript:       transcript,
			CandidateReasons: m.CandidateReasons(),
		})
		if err != nil {
			log.Warn("Summary failed, closing with defaults", zap.Error(err))
			summary, degraded = oracle.DefaultSummary(), true
		}
	}

	status := models.StatusCompleted
	if summary.EscalationRequired {
		status = models.StatusEscalated
	}
	severity := summary.SeverityScore

	if _, err := m.Close(session.Resolution{
		Status:           status,
		Title:            summary.Title,
		Summary:          summary.Summary,
		IdentifiedReason: summary.IdentifiedReason,
		SeverityScore:    &severity,
	}, s.opts.Now()); err != nil {
		log.Error("Close violated session invariants", zap.Error(err))
		return FinalizeResult{}, err
	}

	persisted := s.persist(ctx, log, "save final state", func(ctx context.Context) error {
		return s.store.SaveSessionState(ctx, m.Session())
	})

	result := outcomeOf(m.Session())
	result.Degraded = degraded
	result.Unpersisted = !persisted

	log.Info("Session finalized",
		zap.String("status", string(result.Status)),
		zap.Int("severity", result.SeverityScore),
		zap.Bool("degraded", degraded))
	return result, nil
}

// Session returns a stored session with its slots
func (s *Service) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}
	return sess, nil
}

// ActiveSession returns the employee's open session or nil
func (s *Service) ActiveSession(ctx context.Context, employeeID string) (*models.Session, error) {
	return s.store.ActiveSession(ctx, employeeID)
}

// Transcript returns the full conversation in order
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]models.Message, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Transcript(ctx, sessionID, 0)
}

func (s *Service) load(ctx context.Context, sessionID string) (*session.Machine, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m, err := session.Load(sess)
	if err != nil {
		s.logger.Error("Stored session is corrupt", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (s *Service) appendMessage(ctx context.Context, sessionID string, sender models.Sender, text string) bool {
	log := s.logger.With(zap.String("session_id", sessionID))
	return s.persist(ctx, log, "append "+string(sender)+" message", func(ctx context.Context) error {
		return s.store.AppendMessage(ctx, &models.Message{
			SessionID: sessionID,
			Sender:    sender,
			Text:      text,
			CreatedAt: s.opts.Now().UTC(),
		})
	})
}

// persist runs a write, retrying it once. It reports false when both attempts failed.
func (s *Service) persist(ctx context.Context, log *zap.Logger, op string, write func(context.Context) error) bool {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if err = write(ctx); err == nil {
			return true
		}
		log.Debug("Write failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
	}
	log.Warn("Write not persisted, needs reconciliation", zap.String("op", op), zap.Error(err))
	return false
}

func outcomeOf(sess *models.Session) FinalizeResult {
	r := FinalizeResult{
		SessionID:          sess.ID,
		Status:             sess.Status,
		EscalationRequired: sess.IsEscalated,
	}
	if sess.Title != nil {
		r.Title = *sess.Title
	}
	if sess.Summary != nil {
		r.Summary = *sess.Summary
	}
	if sess.IdentifiedReason != nil {
		r.IdentifiedReason = *sess.IdentifiedReason
	}
	if sess.SeverityScore != nil {
		r.SeverityScore = *sess.SeverityScore
	}
	return r
}

func trailing(messages []models.Message, n int) []models.Message {
	if n > 0 && len(messages) > n {
		return messages[len(messages)-n:]
	}
	return messages
}
