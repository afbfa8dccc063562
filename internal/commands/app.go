package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/balkashynov/emolyzer/internal/conversation"
	"github.com/balkashynov/emolyzer/internal/db"
	"github.com/balkashynov/emolyzer/internal/history"
	"github.com/balkashynov/emolyzer/internal/intervention"
	"github.com/balkashynov/emolyzer/internal/oracle"
)

// app holds the wired services for one command invocation
type app struct {
	store         *db.Store
	conversations *conversation.Service
	engine        *intervention.Engine
}

// openStore opens the configured database
func openStore() (*db.Store, error) {
	store, err := db.Open(cfg.Database.Path, cfg.GetStoreTimeout())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// newApp wires the store, the oracle and the services on top of them.
// A missing oracle configuration is not fatal: every oracle call then fails
// and the services fall back to their safe defaults.
func newApp(ctx context.Context) (*app, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	o, err := newOracle(ctx)
	if err != nil {
		logger.Warn("Oracle not available, using fallbacks", zap.Error(err))
		o = oracle.Unavailable(err)
	}

	timeout := cfg.GetOracleTimeout()
	convs := conversation.NewService(store, o, conversation.Options{
		MaxFollowupsPerReason: cfg.Policy.MaxFollowupsPerReason,
		TranscriptWindow:      cfg.Policy.TranscriptWindow,
		OracleTimeout:         timeout,
	}, logger)

	agg := history.NewAggregator(store, history.WindowsFromConfig(cfg.History), logger)
	engine := intervention.NewEngine(store, agg, o, convs, intervention.PolicyFromConfig(cfg.Policy), timeout, logger)

	return &app{store: store, conversations: convs, engine: engine}, nil
}

func newOracle(ctx context.Context) (oracle.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "", "gemini":
		return oracle.NewGemini(ctx, cfg.Oracle)
	default:
		return nil, fmt.Errorf("unsupported oracle provider %q", cfg.Oracle.Provider)
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Debug("Failed to close store", zap.Error(err))
	}
}
