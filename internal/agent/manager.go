package agent

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/store"
)

// PipelineFactory builds a pipeline for a newly created agent. Each agent
// gets its own instance so observers and component state never cross agents.
type PipelineFactory func(name string) *pipeline.Pipeline

// Manager owns the live agents, creating them on first use.
type Manager struct {
	mu        sync.Mutex
	agents    map[string]*Agent
	store     store.PsycheStore
	factory   PipelineFactory
	afterTurn TurnHook
	logger    *zap.Logger
}

func NewManager(ps store.PsycheStore, factory PipelineFactory, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		agents:  make(map[string]*Agent),
		store:   ps,
		factory: factory,
		logger:  logger,
	}
}

// OnTurnSaved registers a hook that runs after each agent turn is persisted.
// Set it before the first Get; agents capture the hook at creation.
func (m *Manager) OnTurnSaved(fn TurnHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterTurn = fn
}

// Get returns the named agent, creating and bootstrapping it if needed. The
// personality only applies on creation; existing agents keep theirs.
func (m *Manager) Get(ctx context.Context, name, personality string) (*Agent, error) {
	key := psyche.Key(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[key]; ok {
		return a, nil
	}

	a, err := New(ctx, name, personality, m.store, m.factory(name), m.logger)
	if err != nil {
		return nil, err
	}
	a.afterTurn = m.afterTurn
	m.agents[key] = a
	return a, nil
}

// Lookup returns a live agent without creating one.
func (m *Manager) Lookup(name string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[psyche.Key(name)]
	return a, ok
}

// Names returns the keys of all live agents, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.agents))
	for k := range m.agents {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
