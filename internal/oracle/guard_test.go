package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/balkashynov/emolyzer/internal/models"
)

// stubOracle answers from fields and optionally sleeps first.
type stubOracle struct {
	delay    time.Duration
	decision Decision
	followup Followup
	summary  Summary
	err      error
	finished atomic.Int32
}

func (s *stubOracle) wait(ctx context.Context) {
	defer s.finished.Add(1)
	if s.delay == 0 {
		return
	}
	// Ignores ctx on purpose to simulate a client that does not honor cancellation
	time.Sleep(s.delay)
}

func (s *stubOracle) DecideIntervention(ctx context.Context, _ models.HistoryBundle) (Decision, error) {
	s.wait(ctx)
	return s.decision, s.err
}

func (s *stubOracle) JudgeFollowup(ctx context.Context, _ FollowupRequest) (Followup, error) {
	s.wait(ctx)
	return s.followup, s.err
}

func (s *stubOracle) Summarize(ctx context.Context, _ SummaryRequest) (Summary, error) {
	s.wait(ctx)
	return s.summary, s.err
}

func TestGuard_PassesValidResults(t *testing.T) {
	inner := &stubOracle{
		decision: Decision{Needed: true, Confidence: 0.6, Reasons: []Candidate{{Reason: "r", ProbeQuestion: "q"}}},
		followup: Followup{ContinueFollowup: false, DecisionReason: "done"},
		summary:  Summary{Title: "t", Summary: "s", IdentifiedReason: "r", SeverityScore: 3},
	}
	g := Guard(inner, time.Second, zaptest.NewLogger(t))

	d, err := g.DecideIntervention(context.Background(), models.HistoryBundle{})
	require.NoError(t, err)
	assert.True(t, d.Needed)

	f, err := g.JudgeFollowup(context.Background(), FollowupRequest{})
	require.NoError(t, err)
	assert.False(t, f.ContinueFollowup)

	s, err := g.Summarize(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.SeverityScore)
}

func TestGuard_TimeoutReturnsUnavailable(t *testing.T) {
	inner := &stubOracle{
		delay:    200 * time.Millisecond,
		followup: Followup{ContinueFollowup: true, ResponseText: "late"},
	}
	g := Guard(inner, 20*time.Millisecond, zaptest.NewLogger(t))

	started := time.Now()
	_, err := g.JudgeFollowup(context.Background(), FollowupRequest{})
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 150*time.Millisecond, "guard must not wait for the slow call")

	// The abandoned call still finishes and its result is dropped without blocking
	assert.Eventually(t, func() bool { return inner.finished.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestGuard_RejectsInvalidPayload(t *testing.T) {
	inner := &stubOracle{summary: Summary{Summary: "s", SeverityScore: 42}}
	g := Guard(inner, time.Second, zaptest.NewLogger(t))

	_, err := g.Summarize(context.Background(), SummaryRequest{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestGuard_ClassifiesErrors(t *testing.T) {
	g := Guard(&stubOracle{err: errors.New("connection reset")}, time.Second, nil)
	_, err := g.DecideIntervention(context.Background(), models.HistoryBundle{})
	assert.ErrorIs(t, err, ErrUnavailable)

	g = Guard(&stubOracle{err: malformed("bad")}, time.Second, nil)
	_, err = g.DecideIntervention(context.Background(), models.HistoryBundle{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestGuard_ParentCancellation(t *testing.T) {
	g := Guard(&stubOracle{delay: 100 * time.Millisecond}, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Summarize(ctx, SummaryRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuard_DoesNotDoubleWrap(t *testing.T) {
	g := Guard(&stubOracle{}, time.Second, nil)
	assert.Same(t, g, Guard(g, time.Minute, nil))
}

func TestUnavailable_AlwaysFails(t *testing.T) {
	g := Guard(Unavailable(errors.New("no api key")), time.Second, nil)

	_, err := g.DecideIntervention(context.Background(), models.HistoryBundle{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "no api key")

	_, err = g.JudgeFollowup(context.Background(), FollowupRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = g.Summarize(context.Background(), SummaryRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
