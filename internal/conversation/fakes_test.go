package conversation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/oracle"
)

var clock = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

type step struct {
	followup oracle.Followup
	err      error
}

func cont(text string) step { return step{followup: oracle.Followup{ContinueFollowup: true, ResponseText: text, DecisionReason: "more"}} }
func stop() step            { return step{followup: oracle.Followup{ContinueFollowup: false, ResponseText: "ignored", DecisionReason: "done"}} }

// scriptedOracle replays follow-up steps in order. Once the script runs out it
// repeats fallback, or stops when fallback is nil.
type scriptedOracle struct {
	mu       sync.Mutex
	script   []step
	fallback *step

	summary    oracle.Summary
	summaryErr error

	// blockFollowup makes JudgeFollowup wait until its context ends
	blockFollowup bool

	followupCalls int
	summaryCalls  int
	requests      []oracle.FollowupRequest
	summaries     []oracle.SummaryRequest
}

func (o *scriptedOracle) DecideIntervention(context.Context, models.HistoryBundle) (oracle.Decision, error) {
	return oracle.Decision{}, nil
}

func (o *scriptedOracle) JudgeFollowup(ctx context.Context, req oracle.FollowupRequest) (oracle.Followup, error) {
	o.mu.Lock()
	o.followupCalls++
	o.requests = append(o.requests, req)
	block := o.blockFollowup
	var next step
	switch {
	case len(o.script) > 0:
		next = o.script[0]
		o.script = o.script[1:]
	case o.fallback != nil:
		next = *o.fallback
	default:
		next = stop()
	}
	o.mu.Unlock()

	if block {
		<-ctx.Done()
		return oracle.Followup{}, ctx.Err()
	}
	return next.followup, next.err
}

func (o *scriptedOracle) Summarize(_ context.Context, req oracle.SummaryRequest) (oracle.Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summaryCalls++
	o.summaries = append(o.summaries, req)
	return o.summary, o.summaryErr
}

func (o *scriptedOracle) calls() (followups, summaries int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.followupCalls, o.summaryCalls
}

// flakyStore fails selected writes with a store error
type flakyStore struct {
	Store

	mu                sync.Mutex
	appendFailures    int
	failTerminalSaves bool
}

func (f *flakyStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	if f.appendFailures > 0 {
		f.appendFailures--
		f.mu.Unlock()
		return db.ErrStoreUnavailable
	}
	f.mu.Unlock()
	return f.Store.AppendMessage(ctx, msg)
}

func (f *flakyStore) SaveSessionState(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	fail := f.failTerminalSaves && s.Status.IsTerminal()
	f.mu.Unlock()
	if fail {
		return db.ErrStoreUnavailable
	}
	return f.Store.SaveSessionState(ctx, s)
}

func (f *flakyStore) set(fn func(f *flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func openStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "conversation.db"), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newService(t *testing.T, store Store, o oracle.Oracle, mutate ...func(*Options)) *Service {
	t.Helper()
	opts := DefaultOptions()
	opts.Now = func() time.Time { return clock }
	for _, fn := range mutate {
		fn(&opts)
	}
	return NewService(store, o, opts, zaptest.NewLogger(t))
}

func reasons(names ...string) []oracle.Candidate {
	out := make([]oracle.Candidate, len(names))
	for i, n := range names {
		out[i] = oracle.Candidate{Reason: n, ProbeQuestion: "Tell me about " + n + "?"}
	}
	return out
}
