package models

import (
	"time"
)

// Mood scale used by the vibe meter, lowest is worst
const (
	MoodFrustrated = 1
	MoodSad        = 2
	MoodOkay       = 3
	MoodHappy      = 4
	MoodExcited    = 5
)

var moodLabels = map[int]string{
	MoodFrustrated: "Frustrated",
	MoodSad:        "Sad",
	MoodOkay:       "Okay",
	MoodHappy:      "Happy",
	MoodExcited:    "Excited",
}

// MoodLabel returns the display name for a scale value, or "" when out of range
func MoodLabel(scale int) string {
	return moodLabels[scale]
}

// MoodEntry is a single self-reported mood reading
type MoodEntry struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EmployeeID string    `gorm:"not null;index" json:"employee_id"`
	Mood       string    `gorm:"not null" json:"mood"`
	Scale      int       `gorm:"not null" json:"scale"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// Award is a recognition or reward granted to an employee
type Award struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EmployeeID   string    `gorm:"not null;index" json:"employee_id"`
	AwardType    string    `gorm:"not null" json:"award_type"`
	AwardDate    time.Time `gorm:"not null;index" json:"award_date"`
	RewardPoints int       `json:"reward_points"`
}

// LeaveRecord is a block of leave taken by an employee
type LeaveRecord struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EmployeeID string    `gorm:"not null;index" json:"employee_id"`
	LeaveType  string    `gorm:"not null" json:"leave_type"`
	LeaveDays  int       `json:"leave_days"`
	StartDate  time.Time `gorm:"not null;index" json:"leave_start_date"`
	EndDate    time.Time `json:"leave_end_date"`
}

// PerformanceReview is a periodic review outcome
type PerformanceReview struct {
	ID                     uint      `gorm:"primarykey" json:"id"`
	CreatedAt              time.Time `json:"created_at"`
	EmployeeID             string    `gorm:"not null;index" json:"employee_id"`
	ReviewPeriod           string    `gorm:"not null" json:"review_period"` // e.g. 2024-H2, sorts lexically
	Rating                 float64   `json:"performance_rating"`
	ManagerFeedback        string    `json:"manager_feedback"`
	PromotionConsideration bool      `json:"promotion_consideration"`
}

// HistoryBundle is the transient context handed to the oracle when deciding
// whether to intervene. It is assembled per call and never persisted.
type HistoryBundle struct {
	EmployeeID   string             `json:"employee_id"`
	Moods        []MoodEntry        `json:"moods"`
	Awards       []Award            `json:"awards"`
	Leaves       []LeaveRecord      `json:"leaves"`
	LatestReview *PerformanceReview `json:"latest_review"`
}
