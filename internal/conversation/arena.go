package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrConversationNotFound is returned for unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// Arena starts conversations and tracks them by id.
type Arena struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	logger        *zap.Logger
}

func NewArena(logger *zap.Logger) *Arena {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arena{conversations: make(map[string]*Conversation), logger: logger}
}

// Start launches a conversation goroutine. The opener counts as agent A's
// first utterance; agent B takes the first cognitive turn.
func (a *Arena) Start(ctx context.Context, agentA, agentB Participant, opener string, rounds int) *Conversation {
	conv := newConversation(agentA.Name(), agentB.Name(), opener, rounds)
	runCtx, cancel := context.WithCancel(ctx)
	conv.cancel = cancel

	a.mu.Lock()
	a.conversations[conv.ID] = conv
	a.mu.Unlock()

	a.logger.Info("conversation started",
		zap.String("id", conv.ID),
		zap.String("agent_a", conv.AgentA),
		zap.String("agent_b", conv.AgentB),
		zap.Int("rounds", rounds))

	go a.run(runCtx, conv, agentA, agentB)
	return conv
}

// Get returns the snapshot for a conversation id.
func (a *Arena) Get(id string) (Snapshot, error) {
	a.mu.Lock()
	conv, ok := a.conversations[id]
	a.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrConversationNotFound
	}
	return conv.Snapshot(), nil
}

// List returns snapshots of all conversations, newest first.
func (a *Arena) List() []Snapshot {
	a.mu.Lock()
	snaps := make([]Snapshot, 0, len(a.conversations))
	for _, conv := range a.conversations {
		snaps = append(snaps, conv.Snapshot())
	}
	a.mu.Unlock()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].StartedAt.After(snaps[j].StartedAt) })
	return snaps
}

// Stop requests a running conversation to halt after the current turn.
func (a *Arena) Stop(id string) error {
	a.mu.Lock()
	conv, ok := a.conversations[id]
	a.mu.Unlock()
	if !ok {
		return ErrConversationNotFound
	}
	conv.finish(StatusStopped, "")
	conv.cancel()
	return nil
}

// StopAll halts every running conversation. Used at shutdown.
func (a *Arena) StopAll() {
	a.mu.Lock()
	convs := make([]*Conversation, 0, len(a.conversations))
	for _, c := range a.conversations {
		convs = append(convs, c)
	}
	a.mu.Unlock()
	for _, c := range convs {
		if c.alive() {
			c.finish(StatusStopped, "")
			c.cancel()
		}
	}
}

// Remove deletes a finished conversation from the registry.
func (a *Arena) Remove(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.conversations[id]
	if !ok {
		return ErrConversationNotFound
	}
	if conv.alive() {
		return errors.New("conversation still running")
	}
	delete(a.conversations, id)
	return nil
}

// run alternates turns between the agents. Liveness is re-checked between
// turns so a stop lands at the next turn boundary.
func (a *Arena) run(ctx context.Context, conv *Conversation, agentA, agentB Participant) {
	defer close(conv.done)
	defer conv.cancel()

	conv.record(conv.AgentA, conv.Opener)
	lastSpeech := conv.Opener
	speaker, listener := agentA, agentB

	// Each round is one reply; the listener of the previous utterance speaks.
	for i := 0; i < conv.Rounds; i++ {
		if !conv.alive() || ctx.Err() != nil {
			conv.finish(StatusStopped, "")
			a.logger.Info("conversation stopped", zap.String("id", conv.ID))
			return
		}

		turn, err := listener.Receive(ctx, lastSpeech, speaker.Name())
		if err != nil {
			conv.finish(StatusError, err.Error())
			a.logger.Warn("conversation errored",
				zap.String("id", conv.ID),
				zap.String("agent", listener.Name()),
				zap.Error(err))
			return
		}
		conv.record(listener.Name(), turn.Speech)
		lastSpeech = turn.Speech
		speaker, listener = listener, speaker
	}
	conv.finish(StatusCompleted, "")
	a.logger.Info("conversation completed", zap.String("id", conv.ID))
}
