package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/emolyzer/internal/models"
)

// RecordMood stores a mood reading
func (s *Store) RecordMood(ctx context.Context, entry *models.MoodEntry) error {
	return s.insert(ctx, "record mood", entry)
}

// RecordAward stores an award
func (s *Store) RecordAward(ctx context.Context, award *models.Award) error {
	return s.insert(ctx, "record award", award)
}

// RecordLeave stores a leave record
func (s *Store) RecordLeave(ctx context.Context, leave *models.LeaveRecord) error {
	return s.insert(ctx, "record leave", leave)
}

// RecordReview stores a performance review
func (s *Store) RecordReview(ctx context.Context, review *models.PerformanceReview) error {
	return s.insert(ctx, "record review", review)
}

// RecentMoods returns mood readings newest first. A zero since means no lower bound,
// a zero limit means no cap.
func (s *Store) RecentMoods(ctx context.Context, employeeID string, since time.Time, limit int) ([]models.MoodEntry, error) {
	var moods []models.MoodEntry
	if err := s.getRecent(ctx, &moods, employeeID, "created_at", since, limit); err != nil {
		return nil, unavailable("load moods", err)
	}
	return moods, nil
}

// RecentAwards returns awards granted on or after since, newest first
func (s *Store) RecentAwards(ctx context.Context, employeeID string, since time.Time) ([]models.Award, error) {
	var awards []models.Award
	if err := s.getRecent(ctx, &awards, employeeID, "award_date", since, 0); err != nil {
		return nil, unavailable("load awards", err)
	}
	return awards, nil
}

// RecentLeaves returns leave starting on or after since, newest first
func (s *Store) RecentLeaves(ctx context.Context, employeeID string, since time.Time) ([]models.LeaveRecord, error) {
	var leaves []models.LeaveRecord
	if err := s.getRecent(ctx, &leaves, employeeID, "start_date", since, 0); err != nil {
		return nil, unavailable("load leaves", err)
	}
	return leaves, nil
}

// LatestReview returns the most recent performance review, or nil when none exists
func (s *Store) LatestReview(ctx context.Context, employeeID string) (*models.PerformanceReview, error) {
	q, cancel := s.conn(ctx)
	defer cancel()

	var review models.PerformanceReview
	err := q.Where("employee_id = ?", employeeID).
		Order("review_period DESC").
		Order("id DESC").
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("load review", err)
	}
	return &review, nil
}

// getRecent loads one employee's rows newest first by column, bounded below by since
func (s *Store) getRecent(ctx context.Context, dest interface{}, employeeID, column string, since time.Time, limit int) error {
	q, cancel := s.conn(ctx)
	defer cancel()

	q = q.Where("employee_id = ?", employeeID)
	if !since.IsZero() {
		q = q.Where(column+" >= ?", since.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q.Order(column + " DESC").Order("id DESC").Find(dest).Error
}

func (s *Store) insert(ctx context.Context, op string, record interface{}) error {
	q, cancel := s.conn(ctx)
	defer cancel()

	if err := q.Create(record).Error; err != nil {
		return unavailable(op, err)
	}
	return nil
}
