// Package agent binds a named psyche to a cognitive pipeline and the store.
// An agent processes one message at a time; concurrent deliveries queue on
// the per-agent mutex so psyche read-modify-write cycles never interleave.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/store"
)

// TurnHook runs after a turn's psyche state has been saved. It receives the
// in-memory psyche, so mirrors (relation graph, dashboards) see the turn
// that just happened, not the previously persisted state.
type TurnHook func(ctx context.Context, p *psyche.Psyche)

// Agent is one conversational participant.
type Agent struct {
	name        string
	personality string
	store       store.PsycheStore
	pipeline    *pipeline.Pipeline
	afterTurn   TurnHook
	logger      *zap.Logger
	mu          sync.Mutex
}

// New loads or bootstraps the agent's psyche and returns the agent.
func New(ctx context.Context, name, personality string, ps store.PsycheStore, pl *pipeline.Pipeline, logger *zap.Logger) (*Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{name: name, personality: personality, store: ps, pipeline: pl, logger: logger}

	psy, err := ps.Load(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		psy = psyche.New(name, personality)
	} else if err != nil {
		return nil, fmt.Errorf("bootstrap agent %s: %w", name, err)
	}
	seedPsyche(psy, personality)
	if err := ps.Save(ctx, psy); err != nil {
		return nil, fmt.Errorf("bootstrap agent %s: %w", name, err)
	}
	logger.Info("agent ready",
		zap.String("agent", psyche.Key(name)),
		zap.String("personality", psy.Personality),
		zap.Int("tension", psy.TensionLevel))
	return a, nil
}

func (a *Agent) Name() string { return a.name }

// Observe attaches a pipeline observer for this agent's turns.
func (a *Agent) Observe(obs pipeline.Observer) {
	a.pipeline.Observe(obs)
}

// Psyche returns a fresh copy of the persisted psyche.
func (a *Agent) Psyche(ctx context.Context) (*psyche.Psyche, error) {
	return a.store.Load(ctx, a.name)
}

// Receive runs one full cognitive turn over an incoming message. sender may
// be empty for environmental input; when present it is tracked as a
// relationship and prefixed into the observation.
func (a *Agent) Receive(ctx context.Context, message, sender string) (*pipeline.Turn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	psy, err := a.store.Load(ctx, a.name)
	if err != nil {
		return nil, fmt.Errorf("load psyche %s: %w", a.name, err)
	}

	observation := message
	if sender != "" {
		psy.MeetPeer(sender)
		observation = sender + ": " + message
	}

	turn := a.pipeline.Run(ctx, pipeline.NewTurn(observation, psy.Personality), psy)

	if sender != "" {
		psy.BumpFamiliarity(sender)
	}

	if err := a.store.Save(ctx, psy); err != nil {
		return nil, fmt.Errorf("save psyche %s: %w", a.name, err)
	}
	if a.afterTurn != nil {
		a.afterTurn(ctx, psy)
	}
	if len(turn.Errors) > 0 {
		a.logger.Warn("turn completed with component errors",
			zap.String("agent", psyche.Key(a.name)),
			zap.Any("errors", turn.Errors))
	}
	return turn, nil
}

// Reset clears the agent's conversational memory while keeping identity,
// learned stressors, and plan state.
func (a *Agent) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	psy, err := a.store.Load(ctx, a.name)
	if err != nil {
		return err
	}
	psy.ClearMemories()
	return a.store.Save(ctx, psy)
}
