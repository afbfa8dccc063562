package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/emolyzer/internal/models"
)

// ErrStoreUnavailable wraps every failure to reach or use the underlying database.
var ErrStoreUnavailable = errors.New("store unavailable")

// DefaultTimeout bounds a single store call when none is configured
const DefaultTimeout = 5 * time.Second

// Store is the gorm-backed persistence layer for sessions, transcripts and
// employee history records.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// Open sets up the database connection and runs migrations
func Open(path string, timeout time.Duration) (*Store, error) {
	if path != ":memory:" {
		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent), // Quiet by default
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite allows a single writer; one connection keeps writers from racing
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, timeout: timeout}
	if err := s.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// DefaultPath returns the path to the SQLite database file
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".emolyzer", "emolyzer.db"), nil
}

// runMigrations creates/updates the database schema
func (s *Store) runMigrations() error {
	if err := s.db.AutoMigrate(
		&models.Session{},
		&models.ReasonSlot{},
		&models.Message{},
		&models.MoodEntry{},
		&models.Award{},
		&models.LeaveRecord{},
		&models.PerformanceReview{},
	); err != nil {
		return err
	}

	// At most one active session per employee
	// SQLite rejects bound parameters in a partial index predicate
	return s.db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions(employee_id) WHERE status = '%s'",
		models.StatusActive,
	)).Error
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// conn returns a handle bound to ctx with the store timeout applied
func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// unavailable tags err as a store transport failure
func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
}
