package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/emolyzer/internal/models"
)

// DefaultTimeout bounds a single oracle call when none is configured
const DefaultTimeout = 30 * time.Second

type validator interface {
	Validate() error
}

// guarded bounds every call by a timeout and validates what comes back.
type guarded struct {
	inner   Oracle
	timeout time.Duration
	logger  *zap.Logger
}

// Guard wraps inner so that calls never block past timeout, a late result is
// discarded, and every payload is validated before it is returned.
func Guard(inner Oracle, timeout time.Duration, logger *zap.Logger) Oracle {
	if g, ok := inner.(*guarded); ok {
		return g
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &guarded{inner: inner, timeout: timeout, logger: logger.With(zap.String("component", "oracle"))}
}

func (g *guarded) DecideIntervention(ctx context.Context, bundle models.HistoryBundle) (Decision, error) {
	return call(ctx, g, "decide_intervention", func(ctx context.Context) (Decision, error) {
		return g.inner.DecideIntervention(ctx, bundle)
	})
}

func (g *guarded) JudgeFollowup(ctx context.Context, req FollowupRequest) (Followup, error) {
	return call(ctx, g, "judge_followup", func(ctx context.Context) (Followup, error) {
		return g.inner.JudgeFollowup(ctx, req)
	})
}

func (g *guarded) Summarize(ctx context.Context, req SummaryRequest) (Summary, error) {
	return call(ctx, g, "summarize", func(ctx context.Context) (Summary, error) {
		return g.inner.Summarize(ctx, req)
	})
}

func call[T validator](ctx context.Context, g *guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	var zero T
	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Buffered so a late answer never blocks the worker goroutine
	ch := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		ch <- result{value: v, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-callCtx.Done():
		err := fmt.Errorf("%s: %w: %w", op, ErrUnavailable, callCtx.Err())
		g.logger.Warn("Oracle call abandoned",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return zero, err
	}

	if r.err != nil {
		err := r.err
		if !errors.Is(err, ErrMalformedResponse) && !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		err = fmt.Errorf("%s: %w", op, err)
		g.logger.Warn("Oracle call failed", zap.String("op", op), zap.Error(err))
		return zero, err
	}

	if err := r.value.Validate(); err != nil {
		err = fmt.Errorf("%s: %w", op, err)
		g.logger.Warn("Oracle response rejected", zap.String("op", op), zap.Error(err))
		return zero, err
	}

	g.logger.Debug("Oracle call completed",
		zap.String("op", op),
		zap.Duration("elapsed", time.Since(started)))
	return r.value, nil
}
