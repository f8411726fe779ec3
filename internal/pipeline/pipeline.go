// Package pipeline implements the cognitive pipeline: an ordered chain of
// components that each read the shared turn context, consult the generation
// port, and mutate the psyche through its invariant-preserving mutators. A
// failing component is isolated; the turn always completes with speech.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// Observer receives pipeline progress events. event is "<component>_start"
// before a component runs, "<component>" after it finishes, "llm_call" for
// each generation-port call (with call set), and "complete" at the end.
// Observers run synchronously; a panicking observer is dropped for the rest
// of the turn but never aborts it.
type Observer func(event string, turn *Turn, call *GenCall)

// Pipeline runs components in order over a shared turn and psyche.
type Pipeline struct {
	components []Component
	observers  []Observer
	logger     *zap.Logger
}

// New assembles a pipeline from components in execution order.
func New(logger *zap.Logger, components ...Component) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{components: components, logger: logger}
}

// Default builds the standard five-stage pipeline.
func Default(gen Generator, policy TensionPolicy, styleEnabled bool, logger *zap.Logger) *Pipeline {
	return New(logger,
		NewTrigger(gen, policy, nil, logger),
		NewIntent(gen),
		NewPlan(gen),
		NewAction(gen, styleEnabled),
		NewReflect(gen),
	)
}

// Observe registers a progress observer.
func (p *Pipeline) Observe(obs Observer) {
	p.observers = append(p.observers, obs)
}

// Add inserts a component at the given position; positions past the end
// append. Used to splice optional stages (e.g. recall ahead of appraisal).
func (p *Pipeline) Add(c Component, position int) {
	if position < 0 || position >= len(p.components) {
		p.components = append(p.components, c)
		return
	}
	p.components = append(p.components[:position],
		append([]Component{c}, p.components[position:]...)...)
}

// Components returns the component names in execution order.
func (p *Pipeline) Components() []string {
	names := make([]string, len(p.components))
	for i, c := range p.components {
		names[i] = c.Name()
	}
	return names
}

// Run executes every component in order. Component errors and panics are
// recorded in turn.Errors under the component name; the remaining components
// still run. The psyche is mutated in place; persisting it is the caller's
// job.
func (p *Pipeline) Run(ctx context.Context, turn *Turn, psy *psyche.Psyche) *Turn {
	dead := make(map[int]bool)
	for _, c := range p.components {
		p.notify(dead, c.Name()+"_start", turn, nil)
		if err := p.runComponent(ctx, c, turn, psy); err != nil {
			turn.Errors[c.Name()] = err.Error()
			p.logger.Warn("component failed",
				zap.String("component", c.Name()),
				zap.Error(err))
		}
		for _, call := range turn.DrainCalls() {
			call := call
			p.notify(dead, "llm_call", turn, &call)
		}
		p.notify(dead, c.Name(), turn, nil)
	}
	p.notify(dead, "complete", turn, nil)
	return turn
}

func (p *Pipeline) runComponent(ctx context.Context, c Component, turn *Turn, psy *psyche.Psyche) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Process(ctx, turn, psy)
}

func (p *Pipeline) notify(dead map[int]bool, event string, turn *Turn, call *GenCall) {
	for i, obs := range p.observers {
		if dead[i] {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					dead[i] = true
					p.logger.Warn("observer panicked, muting for turn",
						zap.String("event", event))
				}
			}()
			obs(event, turn, call)
		}()
	}
}
