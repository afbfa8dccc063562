package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a wellbeing conversation
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusEscalated SessionStatus = "escalated"
)

// IsTerminal reports whether the status can no longer change
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusEscalated
}

// Session represents one guided wellbeing conversation with an employee
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EmployeeID string        `gorm:"not null;index" json:"employee_id"`
	Status     SessionStatus `gorm:"not null;index" json:"status"`
	StartedAt  time.Time     `gorm:"not null" json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at"` // set iff status is terminal

	// Filled in by finalization
	Title            *string `json:"title"`
	Summary          *string `json:"summary"`
	IdentifiedReason *string `json:"identified_reason"`
	SeverityScore    *int    `json:"severity_score"` // 1-10
	IsEscalated      bool    `gorm:"not null" json:"is_escalated"`

	// Relationships
	Slots []ReasonSlot `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"slots"`
}

// ReasonSlot is one candidate distress cause explored within a session.
// Slots are traversed in Rank order and each is visited at most once.
type ReasonSlot struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	SessionID string `gorm:"not null;index;size:36" json:"session_id"`

	Rank          int    `gorm:"column:priority;not null" json:"rank"` // 1-based, creation order
	Reason        string `gorm:"not null" json:"reason"`
	ProbeQuestion string `gorm:"not null" json:"probe_question"`
	Asked         bool   `gorm:"not null" json:"asked"`
	Active        bool   `gorm:"not null" json:"active"`
	Followups     int    `gorm:"not null" json:"followups"` // consecutive continue judgments
}

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one append-only transcript entry
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SessionID string    `gorm:"not null;index;size:36" json:"session_id"`
	Sender    Sender    `gorm:"not null" json:"sender"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
