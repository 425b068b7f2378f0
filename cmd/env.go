package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/dispatch"
	"github.com/attestix/compliance-cli/internal/evidence"
	"github.com/attestix/compliance-cli/internal/extract"
	"github.com/attestix/compliance-cli/internal/scan"
	"github.com/attestix/compliance-cli/internal/scoring"
	"github.com/attestix/compliance-cli/internal/storage"
	"github.com/attestix/compliance-cli/internal/store"
)

// env holds the wired application components shared by the worker and serve
// commands. Everything is injected here; no package carries global state.
type env struct {
	Store      store.Store
	Storage    storage.Storage
	Dispatcher *dispatch.Dispatcher
	Temporal   client.Client
	Options    dispatch.Options
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	blob, err := storage.NewMinio(ctx, cfg.Storage)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init storage")
	}

	opts := dispatch.OptionsFromConfig(cfg.Dispatch)
	dispatcher, tc, err := dispatch.Dial(cfg.Temporal, opts)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init dispatch")
	}

	return &env{
		Store:      st,
		Storage:    blob,
		Dispatcher: dispatcher,
		Temporal:   tc,
		Options:    opts,
	}, nil
}

// activities builds the worker-side task implementations on top of the env.
func (e *env) activities() (*dispatch.Activities, error) {
	extractor, err := extract.NewExtractor(cfg.Extract)
	if err != nil {
		return nil, eris.Wrap(err, "init extractor")
	}
	coordinator := extract.NewCoordinator(e.Store, e.Storage, extractor)

	engine := scoring.NewAnthropicEngine(cfg.Scoring)
	assembler := evidence.NewAssembler(e.Store)
	orchestrator := scan.NewOrchestrator(e.Store, assembler, engine, cfg.Scoring.Model, cfg.Scoring.PromptVersion)

	return dispatch.NewActivities(coordinator, orchestrator, e.Store, e.Options, cfg.Cleanup.RetentionDays), nil
}

func (e *env) Close() {
	e.Temporal.Close()
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}
