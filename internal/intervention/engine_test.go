package intervention

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/balkashynov/emolyzer/internal/config"
	"github.com/balkashynov/emolyzer/internal/conversation"
	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/history"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/oracle"
)

var start = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

// decisionOracle answers DecideIntervention from a fixed decision
type decisionOracle struct {
	mu       sync.Mutex
	decision oracle.Decision
	err      error
	calls    int
	bundles  []models.HistoryBundle
}

func (o *decisionOracle) DecideIntervention(_ context.Context, b models.HistoryBundle) (oracle.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.bundles = append(o.bundles, b)
	return o.decision, o.err
}

func (o *decisionOracle) JudgeFollowup(context.Context, oracle.FollowupRequest) (oracle.Followup, error) {
	return oracle.Followup{}, nil
}

func (o *decisionOracle) Summarize(context.Context, oracle.SummaryRequest) (oracle.Summary, error) {
	return oracle.DefaultSummary(), nil
}

func (o *decisionOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type fixture struct {
	engine *Engine
	store  *db.Store
	convs  *conversation.Service
	oracle *decisionOracle
	now    time.Time
}

func newFixture(t *testing.T, o *decisionOracle) *fixture {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "intervention.db"), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, oracle: o, now: start}
	clock := func() time.Time { return f.now }

	logger := zaptest.NewLogger(t)
	agg := history.NewAggregator(store, history.DefaultWindows(), logger)
	agg.SetClock(clock)

	opts := conversation.DefaultOptions()
	opts.Now = clock
	f.convs = conversation.NewService(store, o, opts, logger)

	f.engine = NewEngine(store, agg, o, f.convs, PolicyFromConfig(config.DefaultConfig().Policy), time.Second, logger)
	f.engine.SetClock(clock)
	return f
}

func (f *fixture) submit(t *testing.T, emp string, scale int) Outcome {
	t.Helper()
	f.now = f.now.Add(24 * time.Hour)
	out, err := f.engine.SubmitMood(context.Background(), MoodSubmission{EmployeeID: emp, Scale: scale})
	require.NoError(t, err)
	return out
}

func twoReasons() oracle.Decision {
	return oracle.Decision{Needed: true, Confidence: 0.85, Reasons: []oracle.Candidate{
		{Reason: "R1", ProbeQuestion: "What has your workload been like?"},
		{Reason: "R2", ProbeQuestion: "How are things with your team?"},
	}}
}

func TestShouldTrigger(t *testing.T) {
	p := Policy{LowScoreThreshold: 1, NegativeThreshold: 2, TrailingWindow: 3}

	tests := []struct {
		name     string
		latest   int
		trailing []int
		want     bool
	}{
		{"single frustrated", models.MoodFrustrated, []int{1}, true},
		{"single sad", models.MoodSad, []int{2}, false},
		{"two sad", models.MoodSad, []int{2, 2}, false},
		{"three sad", models.MoodSad, []int{2, 2, 2}, true},
		{"three mixed negative", models.MoodSad, []int{2, 1, 2, 5}, true},
		{"okay breaks window", models.MoodSad, []int{2, 3, 2}, false},
		{"happy latest", models.MoodHappy, []int{4, 2, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldTrigger(tt.latest, tt.trailing))
		})
	}

	assert.False(t, Policy{TrailingWindow: 0, NegativeThreshold: 2}.ShouldTrigger(2, []int{2, 2, 2}))
}

func TestSubmitMood_ThreeSadOpensSession(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: twoReasons()})

	assert.Equal(t, StatusNotNeeded, f.submit(t, "EMP1", models.MoodSad).Status)
	assert.Equal(t, StatusNotNeeded, f.submit(t, "EMP1", models.MoodSad).Status)
	assert.Zero(t, f.oracle.callCount(), "policy keeps the oracle out until the window fills")

	out := f.submit(t, "EMP1", models.MoodSad)
	assert.True(t, out.Triggered)
	require.Equal(t, StatusOpened, out.Status)
	assert.Equal(t, "What has your workload been like?", out.Message)
	assert.Equal(t, models.StatusActive, out.SessionStatus)

	s, err := f.convs.Session(context.Background(), out.SessionID)
	require.NoError(t, err)
	require.Len(t, s.Slots, 2)
	assert.Equal(t, "R1", s.Slots[0].Reason)
	assert.True(t, s.Slots[0].Active)
	assert.Equal(t, "R2", s.Slots[1].Reason)
	assert.False(t, s.Slots[1].Active)

	require.Len(t, f.oracle.bundles, 1)
	assert.Len(t, f.oracle.bundles[0].Moods, 3)
}

func TestSubmitMood_InProgressSkipsEvaluation(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: twoReasons()})

	first := f.submit(t, "EMP1", models.MoodFrustrated)
	require.Equal(t, StatusOpened, first.Status)

	second := f.submit(t, "EMP1", models.MoodFrustrated)
	assert.Equal(t, StatusInProgress, second.Status)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, f.oracle.callCount(), "no re-evaluation while a session is open")
}

func TestSubmitMood_OracleFailureMeansNoIntervention(t *testing.T) {
	f := newFixture(t, &decisionOracle{err: errors.New("quota exceeded")})

	out := f.submit(t, "EMP1", models.MoodFrustrated)
	assert.Equal(t, StatusNotNeeded, out.Status)
	assert.True(t, out.Triggered)
	assert.Contains(t, out.Decision.Failure, "quota exceeded")

	active, err := f.convs.ActiveSession(context.Background(), "EMP1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSubmitMood_MalformedDecisionMeansNoIntervention(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: oracle.Decision{Needed: true, Confidence: 7}})

	out := f.submit(t, "EMP1", models.MoodFrustrated)
	assert.Equal(t, StatusNotNeeded, out.Status)
	assert.NotEmpty(t, out.Decision.Failure)
}

func TestSubmitMood_NeededWithoutReasonsClosesImmediately(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: oracle.Decision{Needed: true, Confidence: 0.4}})

	out := f.submit(t, "EMP1", models.MoodFrustrated)
	assert.Equal(t, StatusOpened, out.Status)
	assert.Equal(t, models.StatusCompleted, out.SessionStatus)

	active, err := f.convs.ActiveSession(context.Background(), "EMP1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestSubmitMood_Validation(t *testing.T) {
	f := newFixture(t, &decisionOracle{})

	_, err := f.engine.SubmitMood(context.Background(), MoodSubmission{EmployeeID: "EMP1", Scale: 6})
	assert.ErrorIs(t, err, ErrInvalidSubmission)
	assert.ErrorIs(t, err, conversation.ErrInputValidation)

	_, err = f.engine.SubmitMood(context.Background(), MoodSubmission{Scale: 3})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	moods, err := f.store.RecentMoods(context.Background(), "EMP1", time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, moods, "rejected submissions are not recorded")
}

func TestCheck_SkipsPolicy(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: twoReasons()})

	out, err := f.engine.Check(context.Background(), "EMP9")
	require.NoError(t, err)
	assert.Equal(t, StatusOpened, out.Status)

	out, err = f.engine.Check(context.Background(), "EMP9")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, out.Status)
}

func TestCheck_ConcurrentCallsOpenOneSession(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: twoReasons()})

	const callers = 6
	var wg sync.WaitGroup
	results := make(chan Outcome, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.engine.Check(context.Background(), "EMP1")
			assert.NoError(t, err)
			results <- out
		}()
	}
	wg.Wait()
	close(results)

	opened := 0
	for out := range results {
		if out.Status == StatusOpened {
			opened++
		}
	}
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, f.oracle.callCount())
}

func TestInProgress(t *testing.T) {
	f := newFixture(t, &decisionOracle{decision: twoReasons()})
	ctx := context.Background()

	out, busy, err := f.engine.inProgress(ctx, "EMP1")
	require.NoError(t, err)
	assert.False(t, busy)
	assert.Equal(t, Outcome{}, out)

	opened, err := f.engine.Check(ctx, "EMP1")
	require.NoError(t, err)
	require.Equal(t, StatusOpened, opened.Status)

	out, busy, err = f.engine.inProgress(ctx, "EMP1")
	require.NoError(t, err)
	assert.True(t, busy)
	assert.Equal(t, StatusInProgress, out.Status)
	assert.Equal(t, opened.SessionID, out.SessionID)
}
