package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/models"
)

var fixedNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "history.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newAggregator(t *testing.T, r Reader) *Aggregator {
	a := NewAggregator(r, DefaultWindows(), zaptest.NewLogger(t))
	a.SetClock(func() time.Time { return fixedNow })
	return a
}

func TestAggregate_EmptyHistory(t *testing.T) {
	a := newAggregator(t, openStore(t))

	bundle, err := a.Aggregate(context.Background(), "EMP404")
	require.NoError(t, err)

	assert.Equal(t, "EMP404", bundle.EmployeeID)
	assert.NotNil(t, bundle.Moods)
	assert.Empty(t, bundle.Moods)
	assert.NotNil(t, bundle.Awards)
	assert.Empty(t, bundle.Awards)
	assert.NotNil(t, bundle.Leaves)
	assert.Empty(t, bundle.Leaves)
	assert.Nil(t, bundle.LatestReview)
}

func TestAggregate_AppliesWindows(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	day := 24 * time.Hour

	require.NoError(t, store.RecordMood(ctx, &models.MoodEntry{EmployeeID: "EMP1", Mood: "Sad", Scale: 2, CreatedAt: fixedNow.Add(-2 * day)}))
	require.NoError(t, store.RecordMood(ctx, &models.MoodEntry{EmployeeID: "EMP1", Mood: "Happy", Scale: 4, CreatedAt: fixedNow.Add(-20 * day)}))
	require.NoError(t, store.RecordMood(ctx, &models.MoodEntry{EmployeeID: "EMP2", Mood: "Sad", Scale: 2, CreatedAt: fixedNow.Add(-1 * day)}))

	require.NoError(t, store.RecordAward(ctx, &models.Award{EmployeeID: "EMP1", AwardType: "Star", AwardDate: fixedNow.Add(-100 * day), RewardPoints: 50}))
	require.NoError(t, store.RecordAward(ctx, &models.Award{EmployeeID: "EMP1", AwardType: "Old", AwardDate: fixedNow.Add(-400 * day)}))

	require.NoError(t, store.RecordLeave(ctx, &models.LeaveRecord{EmployeeID: "EMP1", LeaveType: "Sick", LeaveDays: 2, StartDate: fixedNow.Add(-10 * day), EndDate: fixedNow.Add(-8 * day)}))
	require.NoError(t, store.RecordLeave(ctx, &models.LeaveRecord{EmployeeID: "EMP1", LeaveType: "Annual", LeaveDays: 5, StartDate: fixedNow.Add(-90 * day), EndDate: fixedNow.Add(-85 * day)}))

	require.NoError(t, store.RecordReview(ctx, &models.PerformanceReview{EmployeeID: "EMP1", ReviewPeriod: "2025-H1", Rating: 3.5}))
	require.NoError(t, store.RecordReview(ctx, &models.PerformanceReview{EmployeeID: "EMP1", ReviewPeriod: "2025-H2", Rating: 2.5}))

	bundle, err := newAggregator(t, store).Aggregate(ctx, "EMP1")
	require.NoError(t, err)

	require.Len(t, bundle.Moods, 1)
	assert.Equal(t, "Sad", bundle.Moods[0].Mood)
	require.Len(t, bundle.Awards, 1)
	assert.Equal(t, "Star", bundle.Awards[0].AwardType)
	require.Len(t, bundle.Leaves, 1)
	assert.Equal(t, "Sick", bundle.Leaves[0].LeaveType)
	require.NotNil(t, bundle.LatestReview)
	assert.Equal(t, "2025-H2", bundle.LatestReview.ReviewPeriod)
}

type failingReader struct {
	Reader
	err error
}

func (f failingReader) RecentLeaves(context.Context, string, time.Time) ([]models.LeaveRecord, error) {
	return nil, f.err
}

func TestAggregate_StoreFailure(t *testing.T) {
	storeErr := errors.Join(db.ErrStoreUnavailable, errors.New("disk gone"))
	a := newAggregator(t, failingReader{Reader: openStore(t), err: storeErr})

	_, err := a.Aggregate(context.Background(), "EMP1")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrStoreUnavailable)
}

func TestWindowsFromConfig(t *testing.T) {
	w := DefaultWindows()
	assert.Equal(t, 10*24*time.Hour, w.Mood)
	assert.Equal(t, 365*24*time.Hour, w.Reward)
	assert.Equal(t, 60*24*time.Hour, w.Leave)
}
