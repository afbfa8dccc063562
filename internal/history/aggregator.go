// Package history assembles the recent-records bundle the oracle reasons over.
package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/balkashynov/emolyzer/internal/config"
	"github.com/balkashynov/emolyzer/internal/models"
)

// Reader is the slice of the store the aggregator needs
type Reader interface {
	RecentMoods(ctx context.Context, employeeID string, since time.Time, limit int) ([]models.MoodEntry, error)
	RecentAwards(ctx context.Context, employeeID string, since time.Time) ([]models.Award, error)
	RecentLeaves(ctx context.Context, employeeID string, since time.Time) ([]models.LeaveRecord, error)
	LatestReview(ctx context.Context, employeeID string) (*models.PerformanceReview, error)
}

// Windows are the lookback periods for each record kind
type Windows struct {
	Mood   time.Duration
	Reward time.Duration
	Leave  time.Duration
}

// DefaultWindows returns 10 days of moods, a year of rewards and 60 days of leave
func DefaultWindows() Windows {
	return WindowsFromConfig(config.DefaultConfig().History)
}

// WindowsFromConfig converts the configured day counts into durations
func WindowsFromConfig(cfg config.HistoryConfig) Windows {
	return Windows{
		Mood:   cfg.MoodWindow(),
		Reward: cfg.RewardWindow(),
		Leave:  cfg.LeaveWindow(),
	}
}

// Aggregator reads the four history sources for one employee concurrently
type Aggregator struct {
	reader  Reader
	windows Windows
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregator creates an aggregator. A nil logger is replaced by a no-op one.
func NewAggregator(reader Reader, windows Windows, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		reader:  reader,
		windows: windows,
		logger:  logger.With(zap.String("component", "history")),
		now:     time.Now,
	}
}

// SetClock overrides the time source
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Aggregate builds a fresh bundle. Sub-queries that find nothing yield empty
// collections. Any store failure fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, employeeID string) (models.HistoryBundle, error) {
	now := a.now().UTC()
	bundle := models.HistoryBundle{EmployeeID: employeeID}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		moods, err := a.reader.RecentMoods(gctx, employeeID, now.Add(-a.windows.Mood), 0)
		if err != nil {
			return fmt.Errorf("moods: %w", err)
		}
		bundle.Moods = moods
		return nil
	})

	g.Go(func() error {
		awards, err := a.reader.RecentAwards(gctx, employeeID, now.Add(-a.windows.Reward))
		if err != nil {
			return fmt.Errorf("awards: %w", err)
		}
		bundle.Awards = awards
		return nil
	})

	g.Go(func() error {
		leaves, err := a.reader.RecentLeaves(gctx, employeeID, now.Add(-a.windows.Leave))
		if err != nil {
			return fmt.Errorf("leaves: %w", err)
		}
		bundle.Leaves = leaves
		return nil
	})

	g.Go(func() error {
		review, err := a.reader.LatestReview(gctx, employeeID)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		bundle.LatestReview = review
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Warn("History aggregation failed",
			zap.String("employee_id", employeeID),
			zap.Error(err))
		return models.HistoryBundle{}, fmt.Errorf("failed to aggregate history for %s: %w", employeeID, err)
	}

	if bundle.Moods == nil {
		bundle.Moods = []models.MoodEntry{}
	}
	if bundle.Awards == nil {
		bundle.Awards = []models.Award{}
	}
	if bundle.Leaves == nil {
		bundle.Leaves = []models.LeaveRecord{}
	}

	a.logger.Debug("History aggregated",
		zap.String("employee_id", employeeID),
		zap.Int("moods", len(bundle.Moods)),
		zap.Int("awards", len(bundle.Awards)),
		zap.Int("leaves", len(bundle.Leaves)),
		zap.Bool("has_review", bundle.LatestReview != nil))
	return bundle, nil
}
