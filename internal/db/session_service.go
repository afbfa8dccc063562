package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/emolyzer/internal/models"
)

var (
	// ErrActiveSessionExists is returned when an employee already has an open session
	ErrActiveSessionExists = errors.New("an active session already exists for this employee")

	// ErrSessionMissing is returned when updating a session row that does not exist
	ErrSessionMissing = errors.New("session not found")
)

// SessionFilter narrows ListSessions
type SessionFilter struct {
	EmployeeID    string
	EscalatedOnly bool
	Since         time.Time
	Limit         int
}

// CreateSession inserts a session together with its reason slots
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	q, cancel := s.conn(ctx)
	defer cancel()

	if err := q.Create(session).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("employee %s: %w", session.EmployeeID, ErrActiveSessionExists)
		}
		return unavailable("create session", err)
	}
	return nil
}

// GetSession loads a session and its slots in rank order. A missing session is not an error.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	q, cancel := s.conn(ctx)
	defer cancel()

	var session models.Session
	err := q.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("priority ASC")
	}).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("load session", err)
	}
	return &session, nil
}

// ActiveSession returns the employee's open session, if any
func (s *Store) ActiveSession(ctx context.Context, employeeID string) (*models.Session, error) {
	q, cancel := s.conn(ctx)
	defer cancel()

	var session models.Session
	err := q.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("priority ASC")
	}).Where("employee_id = ? AND status = ?", employeeID, models.StatusActive).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // No active session is not an error
	}
	if err != nil {
		return nil, unavailable("load active session", err)
	}
	return &session, nil
}

// SaveSessionState writes the mutable session fields and every slot flag in one transaction
func (s *Store) SaveSessionState(ctx context.Context, session *models.Session) error {
	q, cancel := s.conn(ctx)
	defer cancel()

	err := q.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
			"status":            session.Status,
			"ended_at":          session.EndedAt,
			"title":             session.Title,
			"summary":           session.Summary,
			"identified_reason": session.IdentifiedReason,
			"severity_score":    session.SeverityScore,
			"is_escalated":      session.IsEscalated,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionMissing
		}

		for _, slot := range session.Slots {
			err := tx.Model(&models.ReasonSlot{}).Where("id = ?", slot.ID).Updates(map[string]interface{}{
				"asked":     slot.Asked,
				"active":    slot.Active,
				"followups": slot.Followups,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, ErrSessionMissing) {
		return fmt.Errorf("session %s: %w", session.ID, ErrSessionMissing)
	}
	if err != nil {
		return unavailable("save session", err)
	}
	return nil
}

// ListSessions returns sessions newest first
func (s *Store) ListSessions(ctx context.Context, filter SessionFilter) ([]models.Session, error) {
	q, cancel := s.conn(ctx)
	defer cancel()

	q = q.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("priority ASC")
	})
	if filter.EmployeeID != "" {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.EscalatedOnly {
		q = q.Where("is_escalated = ?", true)
	}
	if !filter.Since.IsZero() {
		q = q.Where("started_at >= ?", filter.Since.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var sessions []models.Session
	if err := q.Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, unavailable("list sessions", err)
	}
	return sessions, nil
}

// AppendMessage adds one entry to a session transcript
func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) error {
	q, cancel := s.conn(ctx)
	defer cancel()

	if err := q.Create(msg).Error; err != nil {
		return unavailable("append message", err)
	}
	return nil
}

// Transcript returns messages in conversation order. With limit > 0 only the
// trailing limit messages are returned.
func (s *Store) Transcript(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	q, cancel := s.conn(ctx)
	defer cancel()

	var messages []models.Message
	q = q.Where("session_id = ?", sessionID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&messages).Error; err != nil {
		return nil, unavailable("load transcript", err)
	}

	// Flip back to oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// isUniqueViolation detects constraint failures across sqlite driver versions
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
