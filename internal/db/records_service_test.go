package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/emolyzer/internal/models"
)

func TestRecentMoods(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

	for i, scale := range []int{models.MoodHappy, models.MoodSad, models.MoodFrustrated} {
		require.NoError(t, store.RecordMood(ctx, &models.MoodEntry{
			EmployeeID: "EMP001",
			Mood:       models.MoodLabel(scale),
			Scale:      scale,
			CreatedAt:  base.AddDate(0, 0, -10*i),
		}))
	}
	require.NoError(t, store.RecordMood(ctx, &models.MoodEntry{
		EmployeeID: "EMP002", Mood: models.MoodLabel(models.MoodOkay), Scale: models.MoodOkay, CreatedAt: base,
	}))

	all, err := store.RecentMoods(ctx, "EMP001", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.MoodHappy, all[0].Scale, "newest first")

	windowed, err := store.RecentMoods(ctx, "EMP001", base.AddDate(0, 0, -15), 0)
	require.NoError(t, err)
	assert.Len(t, windowed, 2)

	capped, err := store.RecentMoods(ctx, "EMP001", time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, models.MoodHappy, capped[0].Scale)
}

func TestLatestReview(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	none, err := store.LatestReview(ctx, "EMP001")
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, period := range []string{"2025-H2", "2026-H1", "2025-H1"} {
		require.NoError(t, store.RecordReview(ctx, &models.PerformanceReview{
			EmployeeID:   "EMP001",
			ReviewPeriod: period,
			Rating:       3,
		}))
	}

	latest, err := store.LatestReview(ctx, "EMP001")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-H1", latest.ReviewPeriod)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.RecentAwards(context.Background(), "EMP001", time.Time{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
